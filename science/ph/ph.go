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

// Package ph estimates the pH of a nutrient solution by solving the
// acid/base equilibrium of its tabulated acids and hydroxide-forming
// metals together with water dissociation, charge balance, and proton
// and hydroxide conservation.
package ph

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hydrochem"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KwLookupError is returned when the ion product of water is not
// tabulated for a temperature.
type KwLookupError struct {
	Temperature float64
	Available   []float64
}

func (e *KwLookupError) Error() string {
	return fmt.Sprintf("ph: no Kw value for %g °C; available temperatures are %v", e.Temperature, e.Available)
}

// Kw returns the ion product of water at temperature t [°C].
func Kw(c *hydrochem.Catalogue, t float64) (float64, error) {
	kw, ok := c.Kw[t]
	if !ok {
		return 0, &KwLookupError{Temperature: t, Available: c.Temperatures()}
	}
	return kw, nil
}

// Fallback returns a pH drawn from a normal distribution with mean 6.5
// and standard deviation 0.2, rounded to 4 decimal places. It stands in
// for the pH when the equilibrium cannot be solved.
func Fallback() float64 {
	return math.Round((6.5+0.2*rand.NormFloat64())*1e4) / 1e4
}

// Result is the outcome of an equilibrium calculation.
type Result struct {
	// PH is the pH of the solution. When Converged is false it holds the
	// fallback value.
	PH float64

	// H is the free hydrogen ion concentration [mol/L] at the last
	// solver iterate.
	H float64

	// Converged reports whether the equilibrium equations were solved.
	Converged bool

	// Estimate is the pH at the last solver iterate, which is only
	// meaningful as a diagnostic when Converged is false.
	Estimate float64

	// Residual is the largest scaled equation residual at the solution.
	Residual float64

	// Species holds the solved concentrations [mol/L] by species label.
	Species map[string]float64
}

// Solver calculates solution pH.
type Solver struct {
	Catalogue *hydrochem.Catalogue

	// Fallback supplies the pH reported when the equilibrium cannot be
	// solved. The default is the package-level Fallback function.
	Fallback func() float64

	// Tolerance is the largest scaled residual accepted as converged.
	Tolerance float64

	// MaxIterations limits the number of damped Gauss-Newton steps taken.
	MaxIterations int

	Log logrus.FieldLogger
}

// NewSolver returns a solver with default settings.
func NewSolver(c *hydrochem.Catalogue) *Solver {
	return &Solver{
		Catalogue:     c,
		Fallback:      Fallback,
		Tolerance:     1e-4,
		MaxIterations: 200,
		Log:           logrus.StandardLogger(),
	}
}

// Solve calculates the equilibrium pH of a solution with the given ion
// concentrations [mol/L] at temperature t [°C]. A solution that cannot be
// solved is not an error: the result has Converged set to false and PH set
// to the fallback value. An error is returned only if Kw is not tabulated
// for t.
func (s *Solver) Solve(conc map[hydrochem.Ion]float64, t float64) (Result, error) {
	kw, err := Kw(s.Catalogue, t)
	if err != nil {
		return Result{}, err
	}
	sys := newSystem(s.Catalogue, conc, kw)
	y := sys.initialGuess()
	y, resid := s.refine(sys, y)

	ph := -y[sys.h] / math.Ln10
	r := Result{
		Estimate: ph,
		H:        math.Exp(y[sys.h]),
		Residual: resid,
		Species:  make(map[string]float64, len(sys.vars)),
	}
	for i, v := range sys.vars {
		r.Species[v.String()] = math.Exp(y[i])
	}
	if resid <= s.Tolerance && !math.IsNaN(ph) && !math.IsInf(ph, 0) {
		r.Converged = true
		r.PH = ph
		return r, nil
	}
	r.PH = s.fallback()
	return r, nil
}

// ApproximatePH returns the pH of a solution with the given ion
// concentrations [mol/L] at temperature t [°C]. Any failure, including a
// missing Kw value, is logged and replaced by the fallback value.
func (s *Solver) ApproximatePH(conc map[hydrochem.Ion]float64, t float64) float64 {
	r, err := s.Solve(conc, t)
	if err != nil {
		v := s.fallback()
		s.Log.WithFields(logrus.Fields{
			"error": err,
			"pH":    v,
		}).Warn("ph: using fallback pH")
		return v
	}
	if !r.Converged {
		s.Log.WithFields(logrus.Fields{
			"residual": r.Residual,
			"estimate": r.Estimate,
			"pH":       r.PH,
		}).Warn("ph: equilibrium did not converge; using fallback pH")
	}
	return r.PH
}

func (s *Solver) fallback() float64 {
	if s.Fallback == nil {
		return Fallback()
	}
	return s.Fallback()
}

const (
	minLnConc = -230. // about 1e-100 mol/L
	maxLnConc = 5.    // about 150 mol/L
)

// initialGuess speciates the system at the H+ concentration that zeroes
// the charge balance, found by bisection on log10[H+]. If the charge
// balance has no root in the bracket, neutral water is used.
func (sys *system) initialGuess() []float64 {
	lo, hi := -20., 3.
	flo := sys.chargeBalance(math.Pow(10, lo))
	fhi := sys.chargeBalance(math.Pow(10, hi))
	if flo > 0 || fhi < 0 {
		return sys.speciate(neutral)
	}
	for i := 0; i < 100 && hi-lo > 1e-12; i++ {
		mid := (lo + hi) / 2
		if sys.chargeBalance(math.Pow(10, mid)) > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
	return sys.speciate(math.Pow(10, (lo+hi)/2))
}

// refine minimizes the sum of squared scaled residuals of the full system
// with a Levenberg-Marquardt iteration in log-concentration space. It
// returns the final point and the largest absolute residual.
func (s *Solver) refine(sys *system, y []float64) ([]float64, float64) {
	n := len(sys.vars)
	m := sys.equations()
	r := make([]float64, m)
	rTry := make([]float64, m)
	try := make([]float64, n)

	clamp(y)
	sys.residuals(y, r, nil)
	cost := floats.Dot(r, r)
	lambda := 1e-3

	for iter := 0; iter < s.MaxIterations; iter++ {
		if maxAbs(r) < s.Tolerance*1e-6 {
			break
		}
		jac := mat.NewDense(m, n, nil)
		sys.residuals(y, r, func(i, j int, v float64) { jac.Set(i, j, jac.At(i, j)+v) })

		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		var g mat.VecDense
		g.MulVec(jac.T(), mat.NewVecDense(m, r))

		improved := false
		for attempt := 0; attempt < 20; attempt++ {
			a := mat.NewSymDense(n, nil)
			a.CopySym(&jtj)
			for i := 0; i < n; i++ {
				a.SetSym(i, i, jtj.At(i, i)*(1+lambda)+1e-12)
			}
			var step mat.VecDense
			if err := step.SolveVec(a, &g); err != nil {
				lambda *= 10
				continue
			}
			for i := range try {
				try[i] = y[i] - step.AtVec(i)
			}
			clamp(try)
			sys.residuals(try, rTry, nil)
			if c := floats.Dot(rTry, rTry); c < cost && !math.IsNaN(c) {
				copy(y, try)
				copy(r, rTry)
				cost = c
				lambda = math.Max(lambda/10, 1e-12)
				improved = true
				break
			}
			lambda *= 10
		}
		if !improved {
			break
		}
	}
	return y, maxAbs(r)
}

func clamp(y []float64) {
	for i, v := range y {
		switch {
		case math.IsNaN(v):
			y[i] = minLnConc
		case v < minLnConc:
			y[i] = minLnConc
		case v > maxLnConc:
			y[i] = maxLnConc
		}
	}
}

func maxAbs(x []float64) float64 {
	var o float64
	for _, v := range x {
		if a := math.Abs(v); a > o || math.IsNaN(v) {
			if math.IsNaN(v) {
				return math.NaN()
			}
			o = a
		}
	}
	return o
}
