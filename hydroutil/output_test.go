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

package hydroutil

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/unit"
	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/growth"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func TestUnits(t *testing.T) {
	if v := Mass(1500).Value(); v != 1.5 {
		t.Errorf("mass: have %g kg, want 1.5 kg", v)
	}
	if err := Mass(1).Check(unit.Kilogram); err != nil {
		t.Error(err)
	}
	if v := Concentration(0.25).Value(); v != 0.25 {
		t.Errorf("concentration: have %g kg/m3, want 0.25", v)
	}
	if err := Concentration(1).Check(unit.KilogramPerMeter3); err != nil {
		t.Error(err)
	}
	m := Molarity(0.002)
	if different(m.Value(), 2, 1e-12) {
		t.Errorf("molarity: have %g mole/m3, want 2", m.Value())
	}
	if err := m.Check(unit.Dimensions{MoleDim: 1, unit.LengthDim: -3}); err != nil {
		t.Error(err)
	}
	// Dividing an amount by a volume gives a molarity.
	v := unit.New(0.5e-3, unit.Dimensions{unit.LengthDim: 3})
	if err := unit.Div(Amount(1e-3), v).Check(m.Dimensions()); err != nil {
		t.Error(err)
	}
	if s := fmt.Sprintf("%v", Mass(2)); !strings.HasSuffix(s, "kg") {
		t.Errorf("formatted mass %q has no unit", s)
	}
}

func TestOutputter(t *testing.T) {
	c := hydrochem.MustDefault()
	k := hydrochem.MustParseIon("K+")
	no3 := hydrochem.MustParseIon("NO3-")
	traj := growth.Trajectory{
		{k: 1, no3: 2},
		{k: 0.5, no3: 2},
	}

	t.Run("expressions", func(t *testing.T) {
		o, err := NewOutputter(map[string]string{
			"NtoK":   "[NO3-] / [K+]",
			"Mg":     "[Mg(2+)]",
			"Total":  "Total",
			"pHx2":   "pH * 2",
			"sqrtK":  "sqrt([K+])",
			"double": "twice([K+])",
			"Day":    "Day",
		}, map[string]govaluate.ExpressionFunction{
			"twice": func(arg ...interface{}) (interface{}, error) {
				return arg[0].(float64) * 2, nil
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		wantNames := []string{"Day", "Mg", "NtoK", "Total", "double", "pHx2", "sqrtK"}
		if !reflect.DeepEqual(o.Names(), wantNames) {
			t.Errorf("names: have %v, want %v", o.Names(), wantNames)
		}
		have, err := o.Evaluate(c, traj, []float64{6, 6.5})
		if err != nil {
			t.Fatal(err)
		}
		want := map[string][]float64{
			"NtoK":   {2, 4},
			"Mg":     {0, 0},
			"Total":  {3, 2.5},
			"pHx2":   {12, 13},
			"sqrtK":  {1, math.Sqrt(0.5)},
			"double": {2, 1},
			"Day":    {0, 1},
		}
		if !reflect.DeepEqual(have, want) {
			t.Errorf("have %v, want %v", have, want)
		}
	})
	t.Run("no pH", func(t *testing.T) {
		o, err := NewOutputter(map[string]string{"pH": "pH"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		have, err := o.Evaluate(c, traj, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !math.IsNaN(have["pH"][0]) {
			t.Errorf("pH without values should be NaN, have %g", have["pH"][0])
		}
	})
	t.Run("unknown variable", func(t *testing.T) {
		o, err := NewOutputter(map[string]string{"x": "[Unobtainium+] * 2"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := o.Evaluate(c, traj, nil); err == nil {
			t.Error("expected an error for an unknown variable")
		}
	})
	t.Run("syntax", func(t *testing.T) {
		if _, err := NewOutputter(map[string]string{"x": "[K+] * * 2"}, nil); err == nil {
			t.Error("expected a parsing error")
		}
	})
	t.Run("wrong arguments", func(t *testing.T) {
		o, err := NewOutputter(map[string]string{"x": "exp([K+], 2)"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := o.Evaluate(c, traj, nil); err == nil {
			t.Error("expected an error for the wrong number of arguments")
		}
	})
}

func TestSummarizePH(t *testing.T) {
	s := SummarizePH([]float64{6, 6.5, 7}, []int{2})
	if different(s.Mean, 6.5, 1e-12) {
		t.Errorf("mean: have %g, want 6.5", s.Mean)
	}
	if s.Min != 6 || s.Max != 7 {
		t.Errorf("range: have %g to %g, want 6 to 7", s.Min, s.Max)
	}
	if different(s.SD, 0.5, 1e-12) {
		t.Errorf("sd: have %g, want 0.5", s.SD)
	}
	if different(s.Drift, 0.5, 1e-12) {
		t.Errorf("drift: have %g, want 0.5", s.Drift)
	}
	if s.Exceeded != 1 {
		t.Errorf("exceeded: have %d, want 1", s.Exceeded)
	}
	if !strings.Contains(s.String(), "1 days outside") {
		t.Errorf("summary %q does not report the exceeded days", s)
	}

	one := SummarizePH([]float64{6.2}, nil)
	if one.Mean != 6.2 || one.SD != 0 || one.Drift != 0 {
		t.Errorf("single value: %+v", one)
	}
	if empty := SummarizePH(nil, nil); !math.IsNaN(empty.Mean) {
		t.Errorf("empty series should have NaN mean, have %g", empty.Mean)
	}
}
