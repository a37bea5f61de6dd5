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

package growth

import (
	"math"

	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/science/massbalance"
)

// Input describes what the keys of a solution mapping are.
type Input int

const (
	// SaltInput solutions are salt concentrations [g/L] keyed by formula.
	SaltInput Input = iota
	// IonInput solutions are ion concentrations [g/L] keyed by ion spelling.
	IonInput
)

func (i Input) String() string {
	if i == IonInput {
		return "ion"
	}
	return "salt"
}

// ParseInput parses "salt" or "ion".
func ParseInput(s string) (Input, error) {
	switch s {
	case "salt":
		return SaltInput, nil
	case "ion":
		return IonInput, nil
	}
	return 0, errInput
}

var errInput = hydrochem.Errorf("Invalid input type. Please choose either 'salt' or 'ion'.")

// DailyNeed divides the total requirement [g] of a plant over its growth
// time [days].
func DailyNeed(plant map[hydrochem.Ion]float64, growthTime float64) (map[hydrochem.Ion]float64, error) {
	if growthTime <= 0 {
		return nil, hydrochem.Errorf("Growth time must be positive.")
	}
	o := make(map[hydrochem.Ion]float64, len(plant))
	for i, v := range plant {
		o[i] = v / growthTime
	}
	return o, nil
}

// Analysis is the outcome of Analyse.
type Analysis struct {
	// Sufficient reports whether the solution covers the plant for its
	// whole growth time.
	Sufficient bool

	// Days is the number of days of growth the solution supports, capped
	// at the growth time. It is 0 when required ions are missing.
	Days int

	// Limiting holds the ions that run out first, in canonical order. It
	// is empty when the solution is sufficient.
	Limiting []hydrochem.Ion

	// Missing holds required ions that are absent from the solution.
	Missing []hydrochem.Ion
}

// Analyse determines how many days a plant with the total requirement
// plant [g] and growth time [days] can grow in volume [L] of the given
// solution.
func Analyse(c *hydrochem.Catalogue, solution map[string]float64, input Input, plant map[hydrochem.Ion]float64, growthTime, volume float64) (Analysis, error) {
	if volume <= 0 {
		return Analysis{}, hydrochem.ErrVolume
	}
	daily, err := DailyNeed(plant, growthTime)
	if err != nil {
		return Analysis{}, err
	}

	var amounts map[hydrochem.Ion]float64 // g
	switch input {
	case SaltInput:
		amounts, err = massbalance.SaltToIons(c, solution, volume, hydrochem.Grams)
		if err != nil {
			return Analysis{}, err
		}
	case IonInput:
		conc, err := c.ResolveIons(solution)
		if err != nil {
			return Analysis{}, err
		}
		amounts = make(map[hydrochem.Ion]float64, len(conc))
		for i, v := range conc {
			amounts[i] = v * volume
		}
	default:
		return Analysis{}, errInput
	}

	var a Analysis
	for _, i := range hydrochem.SortedIons(plant) {
		if _, ok := amounts[i]; !ok {
			a.Missing = append(a.Missing, i)
		}
	}
	if len(a.Missing) > 0 {
		return a, nil
	}

	limit := math.Floor(growthTime)
	for _, i := range hydrochem.SortedIons(daily) {
		if daily[i] <= 0 {
			continue
		}
		// The small relative margin keeps exact multiples of the daily
		// need from rounding down a day.
		days := math.Floor(amounts[i] / daily[i] * (1 + 1e-12))
		switch {
		case days < limit:
			limit = days
			a.Limiting = []hydrochem.Ion{i}
		case days == limit && len(a.Limiting) > 0:
			a.Limiting = append(a.Limiting, i)
		}
	}
	a.Days = int(limit)
	a.Sufficient = len(a.Limiting) == 0
	return a, nil
}

// Refill returns the amount of each ion that must be added to bring the
// current concentrations up to the optimal ones. Ions absent from current
// count as zero. Ions whose deviation from the optimum is within
// tolerancePct percent of it are skipped. Negative results mean the ion is
// in excess.
func Refill(current, optimal map[hydrochem.Ion]float64, tolerancePct float64) (map[hydrochem.Ion]float64, error) {
	if tolerancePct < 0 {
		return nil, hydrochem.Errorf("Tolerance must not be negative.")
	}
	o := make(map[hydrochem.Ion]float64, len(optimal))
	for i, opt := range optimal {
		d := opt - current[i]
		if math.Abs(d) <= math.Abs(opt)*tolerancePct/100 && tolerancePct > 0 {
			continue
		}
		o[i] = d
	}
	return o, nil
}
