/*
Copyright © 2024 the HydroChem authors.
This file is part of HydroChem.

HydroChem is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

HydroChem is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with HydroChem.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package solubility compares the solubility product (Q) of catalogue
// salts in a solution with their solubility product constants (Ksp) to
// determine which salts precipitate.
package solubility

import (
	"math"
	"strings"

	"github.com/spatialmodel/hydrochem"
)

// Ksp returns the solubility product constant of salt, derived from its
// tabulated solubility s [mol/L] and phase coefficients n_i as
// Π n_i^n_i · s^Σn_i. Salts with a single phase coefficient have Ksp = s.
// Salts without a tabulated solubility have Ksp = 0, meaning that no limit
// is known.
func Ksp(c *hydrochem.Catalogue, salt string) (float64, error) {
	s, err := c.Salt(salt)
	if err != nil {
		return 0, err
	}
	return ksp(c, s), nil
}

func ksp(c *hydrochem.Catalogue, s *hydrochem.Salt) float64 {
	g, ok := c.Solubility[s.Formula]
	if !ok {
		return 0
	}
	mol := g * 10 / s.MolarMass // g/100 mL -> g/L -> mol/L
	if len(s.Phase) <= 1 {
		return mol
	}
	k := 1.
	sum := 0
	for _, n := range s.Phase {
		k *= math.Pow(float64(n), float64(n))
		sum += n
	}
	return k * math.Pow(mol, float64(sum))
}

// Q returns the solubility product of salt in a solution with the given
// ion concentrations [mol/L]: the product of the concentrations of the
// salt's ions, each raised to its stoichiometric coefficient. Ions that
// are absent from molar are skipped.
func Q(c *hydrochem.Catalogue, salt string, molar map[hydrochem.Ion]float64) (float64, error) {
	s, err := c.Salt(salt)
	if err != nil {
		return 0, err
	}
	q, _ := product(s, molar)
	return q, nil
}

// product returns Q and whether all of the salt's ions were present.
func product(s *hydrochem.Salt, molar map[hydrochem.Ion]float64) (float64, bool) {
	q := 1.
	all := true
	for _, st := range s.Ions {
		v, ok := molar[st.Ion]
		if !ok {
			all = false
			continue
		}
		q *= math.Pow(v, float64(st.Count))
	}
	return q, all
}

// Precipitates returns whether salt would precipitate from a solution with
// the given ion concentrations [mol/L]: all of its ions must be present and
// Q must exceed Ksp. Salts without a tabulated solubility never precipitate.
func Precipitates(c *hydrochem.Catalogue, salt string, molar map[hydrochem.Ion]float64) (bool, error) {
	s, err := c.Salt(salt)
	if err != nil {
		return false, err
	}
	return precipitates(c, s, molar), nil
}

func precipitates(c *hydrochem.Catalogue, s *hydrochem.Salt, molar map[hydrochem.Ion]float64) bool {
	k := ksp(c, s)
	if k == 0 {
		return false
	}
	q, all := product(s, molar)
	return all && q > k
}

// Analysis is the result of checking every catalogue salt against a
// solution.
type Analysis struct {
	// Precipitated lists the formulas of precipitating salts in catalogue
	// order.
	Precipitated []string
}

// Soluble returns whether no salt precipitates.
func (a Analysis) Soluble() bool { return len(a.Precipitated) == 0 }

func (a Analysis) String() string {
	if a.Soluble() {
		return "all salts are soluble"
	}
	return "The following salts precipitate: " + strings.Join(a.Precipitated, ", ")
}

// Check evaluates every catalogue salt against a solution with the given
// ion concentrations [mol/L].
func Check(c *hydrochem.Catalogue, molar map[hydrochem.Ion]float64) Analysis {
	var a Analysis
	for _, s := range c.Salts {
		if precipitates(c, s, molar) {
			a.Precipitated = append(a.Precipitated, s.Formula)
		}
	}
	return a
}

// CheckSalts evaluates a solution described by salt concentrations [g/L].
func CheckSalts(c *hydrochem.Catalogue, salts map[string]float64) (Analysis, error) {
	molar, err := SaltsToMolarIons(c, salts)
	if err != nil {
		return Analysis{}, err
	}
	return Check(c, molar), nil
}

// CheckIons evaluates a solution described by ion concentrations [g/L].
func CheckIons(c *hydrochem.Catalogue, ions map[hydrochem.Ion]float64) (Analysis, error) {
	molar, err := c.ToMolar(ions)
	if err != nil {
		return Analysis{}, err
	}
	return Check(c, molar), nil
}

// SaltsToMolarIons converts salt concentrations [g/L] into the ion
// concentrations [mol/L] they produce on dissolution.
func SaltsToMolarIons(c *hydrochem.Catalogue, salts map[string]float64) (map[hydrochem.Ion]float64, error) {
	o := make(map[hydrochem.Ion]float64)
	for name, g := range salts {
		s, err := c.Salt(name)
		if err != nil {
			return nil, err
		}
		mol := g / s.MolarMass
		for _, st := range s.Ions {
			o[st.Ion] += mol * float64(st.Count)
		}
	}
	return o, nil
}
