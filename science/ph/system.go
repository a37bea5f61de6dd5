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

package ph

import (
	"fmt"
	"math"

	"github.com/spatialmodel/hydrochem"
)

// neutral is the free H+ and OH- concentration of pure water [mol/L],
// used as the reference state of the proton and hydroxide balances.
const neutral = 1e-7

type kind int

const (
	hydrogen kind = iota
	hydroxide
	acidState
	metalFree
	metalHydroxide
)

// variable is an unknown concentration in the equilibrium system.
type variable struct {
	kind    kind
	species string // acid name or metal species
	state   int    // protonation state for acids
}

func (v variable) String() string {
	switch v.kind {
	case hydrogen:
		return "H+"
	case hydroxide:
		return "OH-"
	case acidState:
		return fmt.Sprintf("%s[%d]", v.species, v.state)
	case metalFree:
		return v.species
	default:
		return v.species + "(OH)"
	}
}

// term is a coefficient applied to the variable at index v.
type term struct {
	v    int
	coef float64
}

// linearEq is Σ coef·c_v = rhs, where c_v is a concentration. Residuals
// are divided by scale.
type linearEq struct {
	name  string
	terms []term
	rhs   float64
	scale float64
}

// actionEq is the mass-action law Σ coef·ln(c_v) = lnK.
type actionEq struct {
	name  string
	terms []term
	lnK   float64
}

type acidFamily struct {
	acid  *hydrochem.Acid
	total float64
	deg   float64 // concentration-weighted protonation state of the inputs
	vars  []int
}

type metalFamily struct {
	metal     *hydrochem.Metal
	total     float64
	free, hyd int
}

// system is the set of unknowns and equations describing the acid/base
// equilibrium of a solution. Unknowns live in vars and equations refer to
// them by index.
type system struct {
	kw     float64
	vars   []variable
	index  map[variable]int
	linear []linearEq
	action []actionEq

	h, oh  int
	acids  []*acidFamily
	metals []*metalFamily
}

func (s *system) add(v variable) int {
	if i, ok := s.index[v]; ok {
		return i
	}
	s.vars = append(s.vars, v)
	s.index[v] = len(s.vars) - 1
	return len(s.vars) - 1
}

// newSystem classifies the ions in conc [mol/L] and builds the equilibrium
// equations. Ions that are neither tabulated acid states nor hydroxide
// forming metals, and ions with zero concentration, are ignored.
func newSystem(c *hydrochem.Catalogue, conc map[hydrochem.Ion]float64, kw float64) *system {
	s := &system{kw: kw, index: make(map[variable]int)}
	s.h = s.add(variable{kind: hydrogen})
	s.oh = s.add(variable{kind: hydroxide})

	acids := make(map[string]*acidFamily)
	metals := make(map[string]*metalFamily)
	for _, ion := range hydrochem.SortedIons(conc) {
		v := conc[ion]
		if v <= 0 {
			continue
		}
		if a, state, ok := c.Acid(ion); ok {
			f, ok := acids[a.Name]
			if !ok {
				f = &acidFamily{acid: a}
				acids[a.Name] = f
				s.acids = append(s.acids, f)
			}
			f.deg = (f.deg*f.total + float64(state)*v) / (f.total + v)
			f.total += v
			continue
		}
		if m, ok := c.Metal(ion); ok {
			f, ok := metals[m.Species]
			if !ok {
				f = &metalFamily{metal: m}
				metals[m.Species] = f
				s.metals = append(s.metals, f)
			}
			f.total += v
		}
	}

	s.action = append(s.action, actionEq{
		name:  "Kw",
		terms: []term{{s.h, 1}, {s.oh, 1}},
		lnK:   math.Log(kw),
	})

	scale := neutral
	for _, f := range s.acids {
		scale += f.total * float64(len(f.acid.PKa)+abs(f.acid.Charge))
	}
	for _, f := range s.metals {
		scale += f.total * float64(f.metal.Charge)
	}

	charge := linearEq{name: "charge balance", terms: []term{{s.h, 1}, {s.oh, -1}}, scale: scale}
	proton := linearEq{name: "proton balance", terms: []term{{s.h, 1}}, rhs: neutral, scale: scale}

	for _, f := range s.acids {
		a := f.acid
		f.vars = make([]int, len(a.States))
		for st := range a.States {
			f.vars[st] = s.add(variable{kind: acidState, species: a.Name, state: st})
		}
		mass := linearEq{name: a.Name + " mass balance", rhs: f.total, scale: f.total}
		for st, vi := range f.vars {
			mass.terms = append(mass.terms, term{vi, 1})
			if q := a.Charge - st; q != 0 {
				charge.terms = append(charge.terms, term{vi, float64(q)})
			}
			if w := f.deg - float64(st); w != 0 {
				proton.terms = append(proton.terms, term{vi, w})
			}
		}
		s.linear = append(s.linear, mass)
		for st := 0; st < len(a.PKa); st++ {
			s.action = append(s.action, actionEq{
				name:  fmt.Sprintf("%s Ka%d", a.Name, st+1),
				terms: []term{{s.h, 1}, {f.vars[st+1], 1}, {f.vars[st], -1}},
				lnK:   math.Log(a.Ka(st)),
			})
		}
	}

	ohBalance := linearEq{name: "hydroxide balance", terms: []term{{s.oh, 1}}, rhs: neutral, scale: scale}
	for _, f := range s.metals {
		m := f.metal
		f.free = s.add(variable{kind: metalFree, species: m.Species})
		f.hyd = s.add(variable{kind: metalHydroxide, species: m.Species})
		s.action = append(s.action, actionEq{
			name:  m.Species + " hydroxide",
			terms: []term{{f.free, 1}, {s.oh, float64(m.Charge)}, {f.hyd, -1}},
			lnK:   math.Log(m.Ksp),
		})
		s.linear = append(s.linear, linearEq{
			name:  m.Species + " mass balance",
			terms: []term{{f.free, 1}, {f.hyd, 1}},
			rhs:   f.total,
			scale: f.total,
		})
		charge.terms = append(charge.terms, term{f.free, float64(m.Charge)})
		ohBalance.terms = append(ohBalance.terms, term{f.hyd, float64(m.Charge)})
	}

	s.linear = append(s.linear, charge, proton)
	if len(s.metals) > 0 {
		s.linear = append(s.linear, ohBalance)
	}
	return s
}

// equations returns the number of equations.
func (s *system) equations() int { return len(s.action) + len(s.linear) }

// residuals fills r with the scaled residuals at log concentrations y and,
// if jac is not nil, fills jac with their derivatives with respect to y.
func (s *system) residuals(y []float64, r []float64, jac func(i, j int, v float64)) {
	k := 0
	for _, eq := range s.action {
		v := -eq.lnK
		for _, t := range eq.terms {
			v += t.coef * y[t.v]
			if jac != nil {
				jac(k, t.v, t.coef)
			}
		}
		r[k] = v
		k++
	}
	for _, eq := range s.linear {
		v := -eq.rhs
		for _, t := range eq.terms {
			c := t.coef * math.Exp(y[t.v])
			v += c
			if jac != nil {
				jac(k, t.v, c/eq.scale)
			}
		}
		r[k] = v / eq.scale
		k++
	}
}

// speciate returns the log concentrations of all unknowns when the free
// H+ concentration is h, assuming every family is in internal equilibrium.
func (s *system) speciate(h float64) []float64 {
	y := make([]float64, len(s.vars))
	lnh := math.Log(h)
	y[s.h] = lnh
	y[s.oh] = math.Log(s.kw) - lnh
	for _, f := range s.acids {
		fr := fractions(f.acid, lnh)
		for st, vi := range f.vars {
			y[vi] = math.Log(f.total) + fr[st]
		}
	}
	for _, f := range s.metals {
		// ln(M(OH)/M) = z·ln(OH) - ln(Ksp)
		ratio := float64(f.metal.Charge)*y[s.oh] - math.Log(f.metal.Ksp)
		lnTot := math.Log(f.total)
		y[f.free] = lnTot - logAddExp(0, ratio)
		y[f.hyd] = lnTot + ratio - logAddExp(0, ratio)
	}
	return y
}

// chargeBalance returns the net charge [mol/L] when the free H+
// concentration is h and each family is in internal equilibrium.
func (s *system) chargeBalance(h float64) float64 {
	y := s.speciate(h)
	q := math.Exp(y[s.h]) - math.Exp(y[s.oh])
	for _, f := range s.acids {
		for st, vi := range f.vars {
			q += float64(f.acid.Charge-st) * math.Exp(y[vi])
		}
	}
	for _, f := range s.metals {
		q += float64(f.metal.Charge) * math.Exp(y[f.free])
	}
	return q
}

// fractions returns the log of the fraction of acid a in each protonation
// state at ln[H+] = lnh.
func fractions(a *hydrochem.Acid, lnh float64) []float64 {
	lb := make([]float64, len(a.States))
	for st := 1; st < len(lb); st++ {
		lb[st] = lb[st-1] + math.Log(a.Ka(st-1)) - lnh
	}
	norm := math.Inf(-1)
	for _, v := range lb {
		norm = logAddExp(norm, v)
	}
	for st := range lb {
		lb[st] -= norm
	}
	return lb
}

func logAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a > b {
		return a + math.Log1p(math.Exp(b-a))
	}
	return b + math.Log1p(math.Exp(a-b))
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
