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

// Package hydrochem holds the shared data model of the HydroChem nutrient
// solution engine: canonical ion identifiers and the catalogue of salts,
// acids and metals that the solubility, mass-balance, pH and depletion
// calculations in the subpackages draw from.
package hydrochem

import "fmt"

// Version gives the version number.
const Version = "0.3.0"

// Unit is the unit that a concentration mapping is expressed in.
type Unit int

const (
	// Grams indicates concentrations in g/L or masses in g.
	Grams Unit = iota
	// Moles indicates concentrations in mol/L or amounts in mol.
	Moles
)

func (u Unit) String() string {
	switch u {
	case Grams:
		return "g"
	case Moles:
		return "mol"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// ParseUnit converts "g" or "mol" into a Unit.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "g", "grams":
		return Grams, nil
	case "mol", "moles":
		return Moles, nil
	}
	return Grams, &ValueError{Msg: fmt.Sprintf("'Unit' must be 'g' or 'mol', not %q.", s)}
}

// ValueError reports a request that is outside of the domain of an
// operation, such as a non-positive volume or a salt that is not in the
// catalogue.
type ValueError struct {
	Msg string
}

func (e *ValueError) Error() string { return e.Msg }

// Errorf returns a ValueError with a formatted message.
func Errorf(format string, a ...interface{}) error {
	return &ValueError{Msg: fmt.Sprintf(format, a...)}
}

// ErrVolume is returned when a solution volume is not positive.
var ErrVolume = &ValueError{Msg: "Volume must be positive."}
