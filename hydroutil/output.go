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
	"sort"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/Knetic/govaluate"
	"github.com/ctessum/unit"
	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/growth"
)

// MoleDim is the dimension representing an amount of substance.
var MoleDim unit.Dimension

func init() {
	MoleDim = unit.NewDimension("mole")
}

// Mass returns a mass given in grams as a dimensioned value.
func Mass(g float64) *unit.Unit {
	return unit.New(g/1000, unit.Kilogram)
}

// Concentration returns a concentration given in g/L as a dimensioned value.
func Concentration(gPerL float64) *unit.Unit {
	return unit.New(gPerL, unit.KilogramPerMeter3) // 1 g/L = 1 kg/m³
}

// Molarity returns a concentration given in mol/L as a dimensioned value.
func Molarity(molPerL float64) *unit.Unit {
	return unit.New(molPerL*1000, unit.Dimensions{MoleDim: 1, unit.LengthDim: -3})
}

// Amount returns an amount of substance given in mol as a dimensioned value.
func Amount(mol float64) *unit.Unit {
	return unit.New(mol, unit.Dimensions{MoleDim: 1})
}

// Outputter evaluates derived output variables on each day of a
// projection. Variables are expressions in which ion concentrations [g/L]
// are referenced by their canonical spelling in square brackets (for
// example "[NO3-] / [K+]"). The variables "Day", "pH" and "Total" (the sum
// of all ion concentrations) are also available.
type Outputter struct {
	vars  map[string]*govaluate.EvaluableExpression
	names []string
}

// NewOutputter parses the output variable expressions. Default functions
// include 'exp(x)', 'log(x)', 'log10(x)' and 'sqrt(x)'; outputFunctions
// adds to or replaces them.
func NewOutputter(outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	funcs := map[string]govaluate.ExpressionFunction{
		"exp":   oneArg("exp", math.Exp),
		"log":   oneArg("log", math.Log),
		"log10": oneArg("log10", math.Log10),
		"sqrt":  oneArg("sqrt", math.Sqrt),
	}
	for k, f := range outputFunctions {
		funcs[k] = f
	}
	o := &Outputter{vars: make(map[string]*govaluate.EvaluableExpression)}
	for name, expr := range outputVariables {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, funcs)
		if err != nil {
			return nil, fmt.Errorf("hydroutil: output variable %s: %v", name, err)
		}
		o.vars[name] = e
		o.names = append(o.names, name)
	}
	sort.Strings(o.names)
	return o, nil
}

func oneArg(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("hydroutil: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		v, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("hydroutil: argument of '%s' must be a number", name)
		}
		return f(v), nil
	}
}

// Names returns the output variable names in sorted order.
func (o *Outputter) Names() []string { return o.names }

// Evaluate calculates every output variable on every day of traj. ph may
// be nil. Ions referenced by an expression that are absent on a day are
// taken as zero if they are in the catalogue c.
func (o *Outputter) Evaluate(c *hydrochem.Catalogue, traj growth.Trajectory, ph []float64) (map[string][]float64, error) {
	out := make(map[string][]float64, len(o.vars))
	for _, name := range o.names {
		out[name] = make([]float64, len(traj))
	}
	params := make(map[string]interface{})
	for d, day := range traj {
		for _, i := range c.Ions() {
			params[i.String()] = 0.
		}
		var total float64
		for i, v := range day {
			params[i.String()] = v
			total += v
		}
		params["Day"] = float64(d)
		params["Total"] = total
		params["pH"] = math.NaN()
		if ph != nil {
			params["pH"] = ph[d]
		}
		for _, name := range o.names {
			e := o.vars[name]
			for _, v := range e.Vars() {
				if _, ok := params[v]; !ok {
					return nil, fmt.Errorf("hydroutil: output variable %s: unknown variable %q", name, v)
				}
			}
			r, err := e.Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("hydroutil: output variable %s: %v", name, err)
			}
			v, ok := r.(float64)
			if !ok {
				return nil, fmt.Errorf("hydroutil: output variable %s evaluates to %T, not a number", name, r)
			}
			out[name][d] = v
		}
	}
	return out, nil
}

// PHSummary holds summary statistics of a pH series.
type PHSummary struct {
	Mean, SD, Min, Max float64

	// Drift is the fitted change in pH per day.
	Drift float64

	// Exceeded is the number of days outside the acceptable band.
	Exceeded int
}

// SummarizePH calculates summary statistics of daily pH values.
func SummarizePH(values []float64, exceeded []int) PHSummary {
	s := PHSummary{Exceeded: len(exceeded)}
	if len(values) == 0 {
		s.Mean, s.SD, s.Min, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Mean = stats.StatsMean(values)
	s.Min = stats.StatsMin(values)
	s.Max = stats.StatsMax(values)
	if len(values) < 2 {
		return s
	}
	s.SD = stats.StatsSampleStandardDeviation(values)
	days := make([]float64, len(values))
	for i := range days {
		days[i] = float64(i)
	}
	s.Drift, _, _, _, _, _ = stats.LinearRegression(days, values)
	return s
}

func (s PHSummary) String() string {
	return fmt.Sprintf("pH mean %.3f (sd %.3f, range %.3f to %.3f, drift %+.4f per day); %d days outside the acceptable range",
		s.Mean, s.SD, s.Min, s.Max, s.Drift, s.Exceeded)
}

func sortedKeys(m map[string]float64) []string {
	o := make([]string, 0, len(m))
	for k := range m {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}

func sortedVarKeys(m map[string][]float64) []string {
	o := make([]string, 0, len(m))
	for k := range m {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}
