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

// Package massbalance converts between salt inventories and the ion
// concentrations they produce, in both directions.
package massbalance

import (
	"fmt"
	"strings"

	"github.com/spatialmodel/hydrochem"
)

// SaltToIons converts a salt solution into the ion amounts it produces in
// the given volume [L]. With unit Moles the solution is in mol/L and the
// result is in mol; with unit Grams the solution is in g/L and the result
// is in g.
func SaltToIons(c *hydrochem.Catalogue, solution map[string]float64, volume float64, unit hydrochem.Unit) (map[hydrochem.Ion]float64, error) {
	if volume <= 0 {
		return nil, hydrochem.ErrVolume
	}
	if unit != hydrochem.Grams && unit != hydrochem.Moles {
		return nil, hydrochem.Errorf("'Unit' must be 'g' or 'mol'.")
	}
	mol := make(map[hydrochem.Ion]float64)
	for name, v := range solution {
		s, err := c.Salt(name)
		if err != nil {
			return nil, err
		}
		if unit == hydrochem.Grams {
			v /= s.MolarMass
		}
		for _, st := range s.Ions {
			mol[st.Ion] += float64(st.Count) * v
		}
	}
	o := make(map[hydrochem.Ion]float64, len(mol))
	for i, v := range mol {
		if unit == hydrochem.Moles {
			o[i] = v * volume
			continue
		}
		mm, err := c.IonMolarMass(i)
		if err != nil {
			return nil, err
		}
		o[i] = v * mm * volume
	}
	return o, nil
}

// NoSolutionError is returned by MakeSolution when no combination of the
// selected salts realises the target ion profile.
type NoSolutionError struct {
	Salts  []string
	Reason string
}

func (e *NoSolutionError) Error() string {
	return fmt.Sprintf("massbalance: no solution using salts [%s]: %s", strings.Join(e.Salts, ", "), e.Reason)
}
