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
	"os"
	"path/filepath"
	"testing"

	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/growth"
	"github.com/spatialmodel/hydrochem/science/ph"
)

func TestPlots(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	k := hydrochem.MustParseIon("K+")
	no3 := hydrochem.MustParseIon("NO3-")
	traj := growth.Trajectory{
		{k: 1, no3: 2},
		{k: 0.5, no3: 1.5},
		{k: 0, no3: 1},
	}
	limited := &growth.Analysis{Days: 2, Limiting: []hydrochem.Ion{k}}

	for _, test := range []struct {
		name string
		plot func(string) error
	}{
		{name: "ions.png", plot: func(f string) error { return PlotTrajectory(f, traj, nil, limited) }},
		{name: "k.svg", plot: func(f string) error { return PlotTrajectory(f, traj, []hydrochem.Ion{k}, nil) }},
		{name: "ph.png", plot: func(f string) error {
			return PlotPH(f, []float64{6.5, 6.9, 7.2}, []int{2}, ph.Band{Min: 6, Max: 7})
		}},
		{name: "one_day_ph.pdf", plot: func(f string) error { return PlotPH(f, []float64{6.5}, nil, ph.DefaultBand) }},
	} {
		t.Run(test.name, func(t *testing.T) {
			f := filepath.Join(dir, test.name)
			if err := test.plot(f); err != nil {
				t.Fatal(err)
			}
			info, err := os.Stat(f)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size() == 0 {
				t.Error("empty plot file")
			}
		})
	}
}
