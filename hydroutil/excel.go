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
	"context"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/growth"
	"github.com/tealeg/xlsx"
)

// Sheet layout of the user data workbook.
const (
	SolutionSheet = "My Solution"
	PlantSheet    = "My plant"
	OptimalSheet  = "Optimal Solution"
)

// excelCache holds previously opened Microsoft Excel files
// to avoid reading the same file multiple times.
var excelCache *requestcache.Cache

var loadExcelCacheOnce sync.Once

// loadExcelFile loads an Microsoft Excel file from disk, utilizing
// a cache to avoid loading the same file more than once.
func loadExcelFile(fileName string) (*xlsx.File, error) {
	loadExcelCacheOnce.Do(func() {
		excelCache = requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			filename := req.(string)
			f, err := xlsx.OpenFile(filename)
			if err != nil {
				return nil, fmt.Errorf("hydroutil: opening xlsx file: %v", err)
			}
			return f, nil
		}, runtime.GOMAXPROCS(-1), requestcache.Memory(100))
	})
	r := excelCache.NewRequest(context.Background(), fileName, fileName)
	fI, err := r.Result()
	if err != nil {
		return nil, err
	}
	return fI.(*xlsx.File), nil
}

// LoadColumn reads a two-column mapping from sheet in the Excel file
// fileName. The column headings are in row headerRow; keys are read from the
// column headed keyColumn and values from the column headed valueColumn.
// Rows with an empty key or value are skipped.
func LoadColumn(fileName, sheet string, headerRow int, keyColumn, valueColumn string) (map[string]float64, error) {
	f, err := loadExcelFile(fileName)
	if err != nil {
		return nil, err
	}
	s, ok := f.Sheet[sheet]
	if !ok {
		return nil, fmt.Errorf("hydroutil: reading %s: no sheet %q", fileName, sheet)
	}
	keyCol, valCol := -1, -1
	for i := 0; i < s.MaxCol; i++ {
		switch strings.TrimSpace(s.Cell(headerRow, i).Value) {
		case keyColumn:
			keyCol = i
		case valueColumn:
			valCol = i
		}
	}
	if keyCol < 0 {
		return nil, fmt.Errorf("hydroutil: reading %s sheet %q: no column %q", fileName, sheet, keyColumn)
	}
	if valCol < 0 {
		return nil, fmt.Errorf("hydroutil: reading %s sheet %q: no column %q", fileName, sheet, valueColumn)
	}

	o := make(map[string]float64)
	for j := headerRow + 1; j < s.MaxRow; j++ {
		k := strings.TrimSpace(s.Cell(j, keyCol).Value)
		v := strings.TrimSpace(s.Cell(j, valCol).Value)
		if k == "" || v == "" {
			continue
		}
		val, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("hydroutil: reading %s sheet %q row %d: %v", fileName, sheet, j+1, err)
		}
		o[k] += val
	}
	return o, nil
}

// LoadSolution reads the solution column named name from the "My Solution"
// sheet of a user data workbook.
func LoadSolution(fileName, name string) (map[string]float64, error) {
	return LoadColumn(fileName, SolutionSheet, 1, "Ions", name)
}

// LoadPlant reads the requirements [g] of the plant column named name from
// the "My plant" sheet of a user data workbook.
func LoadPlant(c *hydrochem.Catalogue, fileName, name string) (map[hydrochem.Ion]float64, error) {
	m, err := LoadColumn(fileName, PlantSheet, 1, "Ions", name)
	if err != nil {
		return nil, err
	}
	return c.ResolveIons(m)
}

// LoadOptimal reads the optimal ion concentrations [mol/L] for plant from
// the "Optimal Solution" sheet of a user data workbook.
func LoadOptimal(c *hydrochem.Catalogue, fileName, plant string) (map[hydrochem.Ion]float64, error) {
	m, err := LoadColumn(fileName, OptimalSheet, 0, "Formula", "c [mol/L] "+plant)
	if err != nil {
		return nil, err
	}
	return c.ResolveIons(m)
}

// WriteTrajectory writes one row per day of a projection to the sheet
// "Trajectory" of a new workbook, with one column per ion followed by the
// pH and any derived output variables.
func WriteTrajectory(fileName string, traj growth.Trajectory, ph []float64, vars map[string][]float64) error {
	f := xlsx.NewFile()
	s, err := f.AddSheet("Trajectory")
	if err != nil {
		return fmt.Errorf("hydroutil: writing trajectory: %v", err)
	}
	ions := traj.Ions()
	varNames := sortedVarKeys(vars)

	header := s.AddRow()
	header.AddCell().SetString("Day")
	for _, i := range ions {
		header.AddCell().SetString(i.String() + " [g/L]")
	}
	if ph != nil {
		header.AddCell().SetString("pH")
	}
	for _, v := range varNames {
		header.AddCell().SetString(v)
	}

	for d, day := range traj {
		row := s.AddRow()
		row.AddCell().SetInt(d)
		for _, i := range ions {
			setFloat(row.AddCell(), day[i])
		}
		if ph != nil {
			setFloat(row.AddCell(), ph[d])
		}
		for _, v := range varNames {
			setFloat(row.AddCell(), vars[v][d])
		}
	}
	if err := f.Save(fileName); err != nil {
		return fmt.Errorf("hydroutil: writing trajectory: %v", err)
	}
	return nil
}

// setFloat sets the value of c, leaving it empty if v is not finite.
func setFloat(c *xlsx.Cell, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	c.SetFloat(v)
}

// WriteTable writes a two-column table to the named sheet of a new
// workbook.
func WriteTable(fileName, sheet, keyHeading, valueHeading string, data map[string]float64) error {
	f := xlsx.NewFile()
	s, err := f.AddSheet(sheet)
	if err != nil {
		return fmt.Errorf("hydroutil: writing %s: %v", fileName, err)
	}
	header := s.AddRow()
	header.AddCell().SetString(keyHeading)
	header.AddCell().SetString(valueHeading)
	for _, k := range sortedKeys(data) {
		row := s.AddRow()
		row.AddCell().SetString(k)
		row.AddCell().SetFloat(data[k])
	}
	if err := f.Save(fileName); err != nil {
		return fmt.Errorf("hydroutil: writing %s: %v", fileName, err)
	}
	return nil
}
