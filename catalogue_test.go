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
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/kr/pretty"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Salts) != 32 {
		t.Errorf("have %d salts, want 32", len(c.Salts))
	}
	if c.Salts[0].Formula != "Ca(NO3)2" || c.Salts[31].Formula != "KBr" {
		t.Errorf("salt order changed: first %s, last %s", c.Salts[0].Formula, c.Salts[31].Formula)
	}
	s, err := c.Salt("Ca(NO3)2")
	if err != nil {
		t.Fatal(err)
	}
	if different(s.MolarMass, 164.086, 1e-6) {
		t.Errorf("molar mass: have %g, want 164.086", s.MolarMass)
	}
	edta, err := c.Salt("Fe(III)EDTANa")
	if err != nil {
		t.Fatal(err)
	}
	if edta.Formula != "C10H12FeN2NaO8" {
		t.Errorf("alias resolved to %s", edta.Formula)
	}
	if _, err := c.Salt("NaI"); err == nil {
		t.Error("expected an error for an unknown salt")
	} else {
		var ve *ValueError
		if !errors.As(err, &ve) {
			t.Errorf("have %T, want *ValueError", err)
		}
	}
}

func TestAcidStates(t *testing.T) {
	c := MustDefault()
	want := map[string][]string{
		"H3PO4": {"H3PO4", "H2PO4", "HPO4", "PO4"},
		"HNO3":  {"HNO3", "NO3"},
		"H2SO4": {"H2SO4", "HSO4", "SO4"},
		"NH4":   {"NH4", "NH3"},
	}
	for _, a := range c.Acids {
		w, ok := want[a.Name]
		if !ok {
			continue
		}
		if diff := pretty.Diff(a.States, w); len(diff) > 0 {
			t.Errorf("%s: %v", a.Name, diff)
		}
	}
	a, s, ok := c.Acid(MustParseIon("HSO4-"))
	if !ok || a.Name != "H2SO4" || s != 1 {
		t.Errorf("HSO4-: have %v %d %v", a, s, ok)
	}
	if a.Ion(2) != MustParseIon("SO4(2-)") {
		t.Errorf("state 2 of H2SO4 is %s", a.Ion(2))
	}
	if _, _, ok := c.Acid(MustParseIon("Na+")); ok {
		t.Error("Na+ is not an acid")
	}
	if m, ok := c.Metal(MustParseIon("Fe(3+)")); !ok || m.Ksp != 6.3e-38 {
		t.Errorf("Fe(3+): have %v %v", m, ok)
	}
	if _, ok := c.Metal(MustParseIon("Fe(2+)")); ok {
		t.Error("Fe(2+) has no tabulated hydroxide")
	}
}

func TestResolveIon(t *testing.T) {
	c := MustDefault()
	tests := map[string]string{
		"SO4":     "SO4(2-)",
		"H2PO4":   "H2PO4-",
		"Ca2+":    "Ca(2+)",
		"Ca(2+)":  "Ca(2+)",
		"NH4+":    "NH4+",
		"Na":      "Na+",
		"EDTA":    "EDTA(4-)",
		"Unknown": "Unknown",
	}
	for in, want := range tests {
		have, err := c.ResolveIon(in)
		if err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if have.String() != want {
			t.Errorf("%s: have %s, want %s", in, have, want)
		}
	}
}

func TestIonMolarMass(t *testing.T) {
	c := MustDefault()
	m, err := c.IonMolarMass(MustParseIon("EDTA(4-)"))
	if err != nil {
		t.Fatal(err)
	}
	if different(m, 288.212, 1e-5) {
		t.Errorf("have %g, want 288.212", m)
	}
}

func TestValidate(t *testing.T) {
	t.Run("phase length", func(t *testing.T) {
		_, err := LoadCatalogue(strings.NewReader(`
[[salt]]
formula = "NaCl"
ions = [{ion = "Na+", n = 1}, {ion = "Cl-", n = 1}]
phase = [1]

[kw]
"25" = 1e-14
`))
		if err == nil || !strings.Contains(err.Error(), "phase coefficients") {
			t.Errorf("have %v, want phase coefficient error", err)
		}
	})
	t.Run("orphan solubility", func(t *testing.T) {
		_, err := LoadCatalogue(strings.NewReader(`
[solubility]
"NaI" = 184

[kw]
"25" = 1e-14
`))
		if err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("acid protons", func(t *testing.T) {
		_, err := LoadCatalogue(strings.NewReader(`
[[acid]]
name = "HCl"
pka = [-6.3, 1]

[kw]
"25" = 1e-14
`))
		if err == nil {
			t.Error("expected an error")
		}
	})
}

func TestExtend(t *testing.T) {
	c := MustDefault()
	e, err := c.Extend(strings.NewReader(`
[[salt]]
formula = "NaI"
ions = [{ion = "Na+", n = 1}, {ion = "I-", n = 1}]
phase = [1, 1]

[solubility]
"NaI" = 184.0
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(e.Salts) != len(c.Salts)+1 {
		t.Errorf("have %d salts, want %d", len(e.Salts), len(c.Salts)+1)
	}
	if _, err := e.Salt("NaI"); err != nil {
		t.Error(err)
	}
	if _, err := c.Salt("NaI"); err == nil {
		t.Error("the original catalogue was modified")
	}
	if !e.Known(MustParseIon("I-")) {
		t.Error("I- should be known")
	}
	for i, s := range c.Salts {
		if e.Salts[i] == s {
			t.Errorf("salt %s is shared with the original catalogue", s.Formula)
		}
	}
}

func TestExtend_concurrent(t *testing.T) {
	c := MustDefault()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := c.Extend(strings.NewReader("")); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			for _, s := range c.Salts {
				if s.MolarMass <= 0 {
					t.Errorf("salt %s has molar mass %g", s.Formula, s.MolarMass)
				}
			}
		}()
	}
	wg.Wait()
}
