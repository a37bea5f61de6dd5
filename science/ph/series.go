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
	"runtime"
	"sync"

	"github.com/spatialmodel/hydrochem"
)

// Band is an acceptable pH range.
type Band struct {
	Min, Max float64
}

// Contains reports whether ph lies strictly inside the band.
func (b Band) Contains(ph float64) bool { return b.Min < ph && ph < b.Max }

// Bands holds the acceptable pH range of known plants.
var Bands = map[string]Band{
	"Eggplant":    {Min: 6.2, Max: 6.8},
	"Cucumber":    {Min: 6.0, Max: 7.0},
	"Bell pepper": {Min: 5.5, Max: 6.5},
}

// DefaultBand is used for plants that are not in Bands.
var DefaultBand = Band{Min: 6.0, Max: 7.0}

// BandFor returns the acceptable pH range for the named plant.
func BandFor(plant string) Band {
	if b, ok := Bands[plant]; ok {
		return b
	}
	return DefaultBand
}

// Series calculates the pH of each daily concentration snapshot [mol/L]
// at temperature t [°C] and returns the pH values along with the indices
// of the days whose pH falls outside band. Days are solved concurrently.
func (s *Solver) Series(snapshots []map[hydrochem.Ion]float64, t float64, band Band) ([]float64, []int) {
	values := make([]float64, len(snapshots))

	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			for ii := pp; ii < len(snapshots); ii += nprocs {
				values[ii] = s.ApproximatePH(snapshots[ii], t)
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()

	var exceeded []int
	for i, v := range values {
		if !band.Contains(v) {
			exceeded = append(exceeded, i)
		}
	}
	return values, exceeded
}
