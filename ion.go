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

package hydrochem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Ion identifies a dissolved species by its chemical symbol and
// integer charge, so that "Ca(2+)", "Ca++" and "Ca2+" all refer to the
// same Ion{Species: "Ca", Charge: 2}.
type Ion struct {
	Species string
	Charge  int
}

// String returns the canonical spelling of i: "K+", "Cl-", "Ca(2+)",
// "SO4(2-)", or the bare species for neutral entries.
func (i Ion) String() string {
	switch {
	case i.Charge == 0:
		return i.Species
	case i.Charge == 1:
		return i.Species + "+"
	case i.Charge == -1:
		return i.Species + "-"
	case i.Charge > 0:
		return fmt.Sprintf("%s(%d+)", i.Species, i.Charge)
	default:
		return fmt.Sprintf("%s(%d-)", i.Species, -i.Charge)
	}
}

// ParseIon converts an ion spelling into an Ion. Accepted charge markers
// are a trailing parenthesized group such as "(2+)", "(-)" or "(+)", or a
// trailing run of '+' or '-' signs. Digits directly before a trailing
// sign are treated as part of the species ("NH4+"); use
// Catalogue.ResolveIon to also accept spellings like "Ca2+".
func ParseIon(s string) (Ion, error) {
	ion, _, err := parseIon(s)
	return ion, err
}

// parseIon parses s and also reports whether s carried an explicit
// charge marker.
func parseIon(s string) (Ion, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ion{}, false, Errorf("hydrochem: empty ion name")
	}
	if strings.HasSuffix(s, ")") {
		open := strings.LastIndex(s, "(")
		if open > 0 {
			if q, ok := parseChargeGroup(s[open+1 : len(s)-1]); ok {
				return Ion{Species: s[:open], Charge: q}, true, nil
			}
		}
	}
	end := len(s)
	for end > 0 && (s[end-1] == '+' || s[end-1] == '-') {
		end--
	}
	if end == len(s) {
		return Ion{Species: s}, false, nil
	}
	if end == 0 {
		return Ion{}, false, Errorf("hydrochem: ion %q has no species", s)
	}
	signs := s[end:]
	n := strings.Count(signs, "+")
	if n != 0 && n != len(signs) {
		return Ion{}, false, Errorf("hydrochem: ion %q has mixed charge signs", s)
	}
	if n == 0 {
		return Ion{Species: s[:end], Charge: -len(signs)}, true, nil
	}
	return Ion{Species: s[:end], Charge: n}, true, nil
}

// parseChargeGroup interprets the inside of a charge group such as "2+",
// "-" or "3-".
func parseChargeGroup(g string) (int, bool) {
	if g == "" {
		return 0, false
	}
	sign := g[len(g)-1]
	if sign != '+' && sign != '-' {
		return 0, false
	}
	n := 1
	if digits := g[:len(g)-1]; digits != "" {
		var err error
		n, err = strconv.Atoi(digits)
		if err != nil || n <= 0 {
			return 0, false
		}
	}
	if sign == '-' {
		n = -n
	}
	return n, true
}

// MustParseIon is like ParseIon but panics on error. It is intended for
// initializing package-level tables and tests.
func MustParseIon(s string) Ion {
	i, err := ParseIon(s)
	if err != nil {
		panic(err)
	}
	return i
}

// SortedIons returns the keys of m in canonical order.
func SortedIons(m map[Ion]float64) []Ion {
	o := make([]Ion, 0, len(m))
	for i := range m {
		o = append(o, i)
	}
	SortIons(o)
	return o
}

// SortIons sorts ions by species and then charge.
func SortIons(ions []Ion) {
	sort.Slice(ions, func(a, b int) bool {
		if ions[a].Species != ions[b].Species {
			return ions[a].Species < ions[b].Species
		}
		return ions[a].Charge < ions[b].Charge
	})
}

// CopyIons returns a copy of m.
func CopyIons(m map[Ion]float64) map[Ion]float64 {
	o := make(map[Ion]float64, len(m))
	for k, v := range m {
		o[k] = v
	}
	return o
}
