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

// Package growth projects how a nutrient solution is depleted by a growing
// plant and analyses whether a solution can sustain the plant.
package growth

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/science/solubility"
)

// Trajectory holds the ion concentrations [g/L] of a solution at the start
// of the projection (index 0) and at the end of each following day.
type Trajectory []map[hydrochem.Ion]float64

// Ions returns every ion that appears in the trajectory, in canonical order.
func (t Trajectory) Ions() []hydrochem.Ion {
	all := make(map[hydrochem.Ion]float64)
	for _, day := range t {
		for i := range day {
			all[i] = 0
		}
	}
	return hydrochem.SortedIons(all)
}

// Series returns the concentration [g/L] of ion i on each day.
func (t Trajectory) Series(i hydrochem.Ion) []float64 {
	o := make([]float64, len(t))
	for d, day := range t {
		o[d] = day[i]
	}
	return o
}

// Molar converts every day of the trajectory to mol/L.
func (t Trajectory) Molar(c *hydrochem.Catalogue) ([]map[hydrochem.Ion]float64, error) {
	o := make([]map[hydrochem.Ion]float64, len(t))
	for d, day := range t {
		m, err := c.ToMolar(day)
		if err != nil {
			return nil, fmt.Errorf("growth: day %d: %w", d, err)
		}
		o[d] = m
	}
	return o, nil
}

// State is the state of a projection on the current day.
type State struct {
	Catalogue *hydrochem.Catalogue

	// Need is the amount of each ion the plant takes up per day [g].
	Need map[hydrochem.Ion]float64

	// Volume is the solution volume [L].
	Volume float64

	// Day is the current day, starting at 1.
	Day int

	// Current holds the ion concentrations [g/L] on the current day.
	Current map[hydrochem.Ion]float64

	// Fed reports whether the solution covered the plant's need today.
	Fed bool

	Trajectory Trajectory
}

// DayManipulator is a function that operates on the projection state
// once per day.
type DayManipulator func(s *State) error

// Option configures Project.
type Option func(*projector)

type projector struct {
	runFuncs []DayManipulator
}

// WithLogger logs the state of the solution at the end of each day.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *projector) { p.runFuncs = append(p.runFuncs, Log(l)) }
}

// WithDayFuncs adds manipulators that run after the built-in ones each day.
func WithDayFuncs(f ...DayManipulator) Option {
	return func(p *projector) { p.runFuncs = append(p.runFuncs, f...) }
}

// Project simulates the depletion of a solution with the initial ion
// concentrations snapshot [g/L] and volume [L] by a plant that takes up
// dailyNeed [g] of each ion per day, for the given number of days. The
// returned trajectory has days+1 entries.
func Project(c *hydrochem.Catalogue, snapshot, dailyNeed map[hydrochem.Ion]float64, volume float64, days int, opts ...Option) (Trajectory, error) {
	if volume <= 0 {
		return nil, hydrochem.ErrVolume
	}
	if days < 0 {
		return nil, hydrochem.Errorf("Number of days must not be negative.")
	}
	p := &projector{
		runFuncs: []DayManipulator{Consume(), Precipitate(), Record()},
	}
	for _, o := range opts {
		o(p)
	}
	s := &State{
		Catalogue:  c,
		Need:       dailyNeed,
		Volume:     volume,
		Current:    hydrochem.CopyIons(snapshot),
		Trajectory: make(Trajectory, 0, days+1),
	}
	s.Trajectory = append(s.Trajectory, hydrochem.CopyIons(snapshot))
	for s.Day = 1; s.Day <= days; s.Day++ {
		for _, f := range p.runFuncs {
			if err := f(s); err != nil {
				return nil, err
			}
		}
	}
	return s.Trajectory, nil
}

// Consume removes one day of the plant's need from the solution if every
// required ion is available in sufficient quantity. Concentrations do not
// fall below zero. If any ion is short, the solution is left unchanged.
// Ions with a zero need are not touched.
func Consume() DayManipulator {
	return func(s *State) error {
		s.Fed = true
		for i, need := range s.Need {
			if s.Current[i] < need/s.Volume {
				s.Fed = false
				return nil
			}
		}
		for i, need := range s.Need {
			if need == 0 {
				continue
			}
			s.Current[i] -= need / s.Volume
			if s.Current[i] < 0 {
				s.Current[i] = 0
			}
		}
		return nil
	}
}

// Precipitate removes every ion of every salt that precipitates from the
// solution on days when the plant was fed.
func Precipitate() DayManipulator {
	return func(s *State) error {
		if !s.Fed {
			return nil
		}
		molar, err := s.Catalogue.ToMolar(s.Current)
		if err != nil {
			return fmt.Errorf("growth: day %d: %w", s.Day, err)
		}
		a := solubility.Check(s.Catalogue, molar)
		for _, name := range a.Precipitated {
			salt, err := s.Catalogue.Salt(name)
			if err != nil {
				return err
			}
			for _, st := range salt.Ions {
				s.Current[st.Ion] = 0
			}
		}
		return nil
	}
}

// Record appends a copy of the current concentrations to the trajectory.
func Record() DayManipulator {
	return func(s *State) error {
		s.Trajectory = append(s.Trajectory, hydrochem.CopyIons(s.Current))
		return nil
	}
}

// Log writes the state of the solution to l.
func Log(l logrus.FieldLogger) DayManipulator {
	return func(s *State) error {
		var total float64
		for _, v := range s.Current {
			total += v
		}
		l.WithFields(logrus.Fields{
			"day":   s.Day,
			"fed":   s.Fed,
			"total": total,
		}).Debug("growth: projected day")
		return nil
	}
}
