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

package massbalance

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/science/solubility"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// MaxMoles is the default upper bound on the amount of any one salt [mol].
const MaxMoles = 1e6

// Selector chooses the salts used to realise a set of target ions from
// the candidate salts. Candidates are in catalogue order and targets are in
// canonical order. Implementations should return one salt per target ion
// so that the resulting linear system is square.
type Selector interface {
	Select(targets []hydrochem.Ion, candidates []*hydrochem.Salt) []*hydrochem.Salt
}

// FirstMatch selects, for each target ion in turn, the first candidate
// containing that ion that has not already been selected.
type FirstMatch struct{}

// Select implements Selector.
func (FirstMatch) Select(targets []hydrochem.Ion, candidates []*hydrochem.Salt) []*hydrochem.Salt {
	var chosen []*hydrochem.Salt
	used := make(map[*hydrochem.Salt]bool)
	for _, ion := range targets {
		for _, s := range candidates {
			if !used[s] && s.Contains(ion) > 0 {
				chosen = append(chosen, s)
				used[s] = true
				break
			}
		}
	}
	return chosen
}

// Option configures MakeSolution.
type Option func(*config)

type config struct {
	selector Selector
	maxMoles float64
	log      logrus.FieldLogger
}

// WithSelector sets the salt selection strategy. The default is FirstMatch.
func WithSelector(s Selector) Option {
	return func(c *config) { c.selector = s }
}

// WithMaxMoles sets the upper bound on the amount of any one salt [mol].
func WithMaxMoles(max float64) Option {
	return func(c *config) { c.maxMoles = max }
}

// WithLogger sets the logger used to report solver fallbacks.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.log = l }
}

// MakeSolution returns the mass [g] of each salt that must be dissolved in
// volume [L] of water to obtain the target ion concentrations [g/L],
// using no salt that contains a forbidden ion.
func MakeSolution(c *hydrochem.Catalogue, target map[hydrochem.Ion]float64, forbidden []hydrochem.Ion, volume float64, opts ...Option) (map[string]float64, error) {
	cfg := &config{
		selector: FirstMatch{},
		maxMoles: MaxMoles,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(cfg)
	}
	if volume <= 0 {
		return nil, hydrochem.ErrVolume
	}
	isForbidden := make(map[hydrochem.Ion]bool, len(forbidden))
	var conflict []string
	for _, f := range forbidden {
		isForbidden[f] = true
		if _, ok := target[f]; ok {
			conflict = append(conflict, f.String())
		}
	}
	if len(conflict) > 0 {
		return nil, hydrochem.Errorf("Forbidden ions are in the solution: %s", strings.Join(conflict, ", "))
	}

	molar, err := c.ToMolar(target)
	if err != nil {
		return nil, err
	}
	targets := hydrochem.SortedIons(molar)

	var candidates []*hydrochem.Salt
	for _, s := range c.Salts {
		var hasTarget, hasForbidden bool
		for _, st := range s.Ions {
			if _, ok := molar[st.Ion]; ok {
				hasTarget = true
			}
			if isForbidden[st.Ion] {
				hasForbidden = true
			}
		}
		if !hasTarget || hasForbidden {
			continue
		}
		p, err := solubility.Precipitates(c, s.Formula, molar)
		if err != nil {
			return nil, err
		}
		if p {
			continue
		}
		candidates = append(candidates, s)
	}

	chosen := cfg.selector.Select(targets, candidates)
	names := make([]string, len(chosen))
	for j, s := range chosen {
		names[j] = s.Formula
	}
	cfg.log.WithFields(logrus.Fields{
		"targets":    len(targets),
		"candidates": len(candidates),
		"salts":      names,
	}).Debug("massbalance: selected salts")

	if len(targets) == 0 {
		return map[string]float64{}, nil
	}
	if len(chosen) == 0 {
		return nil, &NoSolutionError{Reason: "no candidate salt supplies the target ions"}
	}

	a := mat.NewDense(len(targets), len(chosen), nil)
	b := make([]float64, len(targets))
	for i, ion := range targets {
		b[i] = molar[ion] * volume
		for j, s := range chosen {
			a.Set(i, j, float64(s.Contains(ion)))
		}
	}

	x, err := boundedSolve(a, b, cfg.maxMoles)
	if err != nil {
		cfg.log.WithFields(logrus.Fields{
			"salts": names,
			"error": err,
		}).Info("massbalance: bounded solve failed; solving without bounds")
		x, err = unboundedSolve(a, b)
		if err != nil {
			return nil, &NoSolutionError{Salts: names, Reason: err.Error()}
		}
		if floats.Min(x) < 0 {
			cfg.log.WithField("salts", names).Warn("massbalance: solution contains negative amounts")
		}
	}

	o := make(map[string]float64, len(chosen))
	for j, s := range chosen {
		o[s.Formula] = x[j] * s.MolarMass
	}
	return o, nil
}

// boundedSolve finds x with a·x = b and 0 ≤ x ≤ max using the simplex
// method, minimizing the total amount of salt. Upper bounds are expressed
// with slack variables.
func boundedSolve(a *mat.Dense, b []float64, max float64) ([]float64, error) {
	m, n := a.Dims()
	if m > n {
		return nil, errOverdetermined
	}
	aa := mat.NewDense(m+n, 2*n, nil)
	bb := make([]float64, m+n)
	cc := make([]float64, 2*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			aa.Set(i, j, a.At(i, j))
		}
		bb[i] = b[i]
	}
	for j := 0; j < n; j++ {
		aa.Set(m+j, j, 1)
		aa.Set(m+j, n+j, 1)
		bb[m+j] = max
		cc[j] = 1
	}
	_, x, err := lp.Simplex(cc, aa, bb, 1e-10, nil)
	if err != nil {
		return nil, err
	}
	return x[:n], nil
}

// unboundedSolve solves a·x = b exactly for square systems and in the
// least-squares sense otherwise, and checks that the result satisfies the
// equations.
func unboundedSolve(a *mat.Dense, b []float64) ([]float64, error) {
	_, n := a.Dims()
	bv := mat.NewVecDense(len(b), b)
	var x mat.VecDense
	if err := x.SolveVec(a, bv); err != nil {
		return nil, err
	}
	var r mat.VecDense
	r.MulVec(a, &x)
	r.SubVec(&r, bv)
	if mat.Norm(&r, 2) > 1e-9*(1+floats.Norm(b, 2)) {
		return nil, errInconsistent
	}
	o := make([]float64, n)
	for j := range o {
		o[j] = x.AtVec(j)
		if math.IsNaN(o[j]) || math.IsInf(o[j], 0) {
			return nil, errInconsistent
		}
	}
	return o, nil
}

type solveError string

func (e solveError) Error() string { return string(e) }

const (
	errOverdetermined = solveError("more target ions than selected salts")
	errInconsistent   = solveError("the target ion ratios cannot be matched")
)
