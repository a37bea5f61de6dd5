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

import "testing"

func TestParseIon(t *testing.T) {
	tests := []struct {
		in   string
		want Ion
	}{
		{in: "Ca(2+)", want: Ion{Species: "Ca", Charge: 2}},
		{in: "Ca++", want: Ion{Species: "Ca", Charge: 2}},
		{in: "NO3(-)", want: Ion{Species: "NO3", Charge: -1}},
		{in: "K(+)", want: Ion{Species: "K", Charge: 1}},
		{in: "Cl-", want: Ion{Species: "Cl", Charge: -1}},
		{in: "SO4(2-)", want: Ion{Species: "SO4", Charge: -2}},
		{in: "SO4--", want: Ion{Species: "SO4", Charge: -2}},
		{in: "NH4+", want: Ion{Species: "NH4", Charge: 1}},
		{in: " B ", want: Ion{Species: "B"}},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			have, err := ParseIon(test.in)
			if err != nil {
				t.Fatal(err)
			}
			if have != test.want {
				t.Errorf("have %+v, want %+v", have, test.want)
			}
		})
	}
	for _, bad := range []string{"", "+-", "Ca+-"} {
		if _, err := ParseIon(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestIonString(t *testing.T) {
	for _, s := range []string{"Ca(2+)", "K+", "Cl-", "SO4(2-)", "B", "Fe(3+)"} {
		if have := MustParseIon(s).String(); have != s {
			t.Errorf("have %s, want %s", have, s)
		}
	}
	for s, want := range map[string]string{
		"K(+)":   "K+",
		"NO3(-)": "NO3-",
		"Ca++":   "Ca(2+)",
		"SO4--":  "SO4(2-)",
	} {
		if have := MustParseIon(s).String(); have != want {
			t.Errorf("%s: have %s, want %s", s, have, want)
		}
	}
}

func TestSortedIons(t *testing.T) {
	m := map[Ion]float64{
		MustParseIon("SO4(2-)"): 1,
		MustParseIon("Fe(3+)"):  1,
		MustParseIon("Fe(2+)"):  1,
		MustParseIon("Br-"):     1,
	}
	want := []string{"Br-", "Fe(2+)", "Fe(3+)", "SO4(2-)"}
	have := SortedIons(m)
	for i, w := range want {
		if have[i].String() != w {
			t.Errorf("position %d: have %s, want %s", i, have[i], w)
		}
	}
}
