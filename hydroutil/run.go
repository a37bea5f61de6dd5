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
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/growth"
	"github.com/spatialmodel/hydrochem/science/massbalance"
	"github.com/spatialmodel/hydrochem/science/ph"
	"github.com/spatialmodel/hydrochem/science/solubility"
)

// Mix calculates the mass of each salt needed to make volume [L] of a
// solution with the target ion concentrations [g/L], without using salts
// that contain the forbidden ions. The result is printed to w and, if
// outputFile is not empty, saved as a workbook.
func Mix(w io.Writer, c *hydrochem.Catalogue, target map[string]float64, forbidden []string, volume float64, outputFile string, log logrus.FieldLogger) error {
	t, err := c.ResolveIons(target)
	if err != nil {
		return err
	}
	var f []hydrochem.Ion
	for _, s := range forbidden {
		i, err := c.ResolveIon(s)
		if err != nil {
			return err
		}
		f = append(f, i)
	}
	salts, err := massbalance.MakeSolution(c, t, f, volume, massbalance.WithLogger(log))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Salts to dissolve in %v L of water:\n", volume)
	for _, s := range sortedKeys(salts) {
		fmt.Fprintf(w, "\t%-12s %v\n", s, Mass(salts[s]))
	}
	if outputFile == "" {
		return nil
	}
	return WriteTable(outputFile, "Salts", "Salt", "Mass [g]", salts)
}

// Ions prints the amount of each ion produced by dissolving the given salt
// concentrations in volume [L] of water. With unit Grams the solution is in
// g/L; with unit Moles it is in mol/L.
func Ions(w io.Writer, c *hydrochem.Catalogue, solution map[string]float64, volume float64, unit hydrochem.Unit) error {
	ions, err := massbalance.SaltToIons(c, solution, volume, unit)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Ions in %v L of solution:\n", volume)
	for _, i := range hydrochem.SortedIons(ions) {
		if unit == hydrochem.Grams {
			fmt.Fprintf(w, "\t%-10s %v\n", i, Mass(ions[i]))
		} else {
			fmt.Fprintf(w, "\t%-10s %v\n", i, Amount(ions[i]))
		}
	}
	return nil
}

// concentrations returns the ion concentrations [g/L] of a solution given
// either as salt or as ion concentrations [g/L].
func concentrations(c *hydrochem.Catalogue, solution map[string]float64, input growth.Input) (map[hydrochem.Ion]float64, error) {
	switch input {
	case growth.SaltInput:
		// The ion mass in one liter equals the concentration.
		return massbalance.SaltToIons(c, solution, 1, hydrochem.Grams)
	case growth.IonInput:
		return c.ResolveIons(solution)
	default:
		return nil, hydrochem.Errorf("Invalid input type. Please choose either 'salt' or 'ion'.")
	}
}

// Check prints the salts that precipitate from a solution given as salt or
// ion concentrations [g/L].
func Check(w io.Writer, c *hydrochem.Catalogue, solution map[string]float64, input growth.Input) (solubility.Analysis, error) {
	conc, err := concentrations(c, solution, input)
	if err != nil {
		return solubility.Analysis{}, err
	}
	a, err := solubility.CheckIons(c, conc)
	if err != nil {
		return a, err
	}
	fmt.Fprintln(w, a)
	return a, nil
}

// PH prints the equilibrium pH of a solution given as salt or ion
// concentrations [g/L] at temperature t [°C], and whether it lies inside
// band.
func PH(w io.Writer, c *hydrochem.Catalogue, solution map[string]float64, input growth.Input, t float64, band ph.Band, log logrus.FieldLogger) (ph.Result, error) {
	conc, err := concentrations(c, solution, input)
	if err != nil {
		return ph.Result{}, err
	}
	molar, err := c.ToMolar(conc)
	if err != nil {
		return ph.Result{}, err
	}
	s := ph.NewSolver(c)
	s.Log = log
	r, err := s.Solve(molar, t)
	if err != nil {
		return r, err
	}
	if !r.Converged {
		log.WithFields(logrus.Fields{
			"residual": r.Residual,
			"estimate": r.Estimate,
		}).Warn("hydrochem: equilibrium did not converge; using fallback pH")
	}
	fmt.Fprintf(w, "pH %.4f ([H+] = %v)\n", r.PH, Molarity(r.H))
	if band.Contains(r.PH) {
		fmt.Fprintf(w, "within the acceptable range %g to %g\n", band.Min, band.Max)
	} else {
		fmt.Fprintf(w, "outside the acceptable range %g to %g\n", band.Min, band.Max)
	}
	return r, nil
}

// ProjectConfig holds the settings of a depletion projection.
type ProjectConfig struct {
	// Solution holds salt or ion concentrations [g/L], as given by Input.
	Solution map[string]float64
	Input    growth.Input

	// Needs is the total requirement [g] of the plant over GrowthTime
	// [days].
	Needs      map[hydrochem.Ion]float64
	GrowthTime float64
	Band       ph.Band

	Volume      float64 // L
	Temperature float64 // °C

	// Days is the number of days to project. If < 1, GrowthTime is used.
	Days int

	// OutputFile is the path of the trajectory workbook. Plots are saved
	// beside it.
	OutputFile      string
	OutputVariables map[string]string
}

// Project projects the depletion of a solution by a growing plant, solves
// the pH of every day, and saves the trajectory, derived output variables
// and plots. A summary is printed to w.
func Project(w io.Writer, c *hydrochem.Catalogue, cfg *ProjectConfig, log logrus.FieldLogger) error {
	conc, err := concentrations(c, cfg.Solution, cfg.Input)
	if err != nil {
		return err
	}
	daily, err := growth.DailyNeed(cfg.Needs, cfg.GrowthTime)
	if err != nil {
		return err
	}
	days := cfg.Days
	if days < 1 {
		days = int(cfg.GrowthTime)
	}
	out, err := NewOutputter(cfg.OutputVariables, nil)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"days":   days,
		"volume": cfg.Volume,
		"ions":   len(conc),
	}).Info("hydrochem: projecting solution")
	traj, err := growth.Project(c, conc, daily, cfg.Volume, days, growth.WithLogger(log))
	if err != nil {
		return err
	}
	molar, err := traj.Molar(c)
	if err != nil {
		return err
	}
	solver := ph.NewSolver(c)
	solver.Log = log
	phs, exceeded := solver.Series(molar, cfg.Temperature, cfg.Band)

	vars, err := out.Evaluate(c, traj, phs)
	if err != nil {
		return err
	}
	if err := WriteTrajectory(cfg.OutputFile, traj, phs, vars); err != nil {
		return err
	}
	a, err := growth.Analyse(c, cfg.Solution, cfg.Input, cfg.Needs, cfg.GrowthTime, cfg.Volume)
	if err != nil {
		return err
	}
	if err := PlotTrajectory(siblingFile(cfg.OutputFile, "_ions.png"), traj, nil, &a); err != nil {
		return err
	}
	if err := PlotPH(siblingFile(cfg.OutputFile, "_ph.png"), phs, exceeded, cfg.Band); err != nil {
		return err
	}

	last := traj[len(traj)-1]
	fmt.Fprintf(w, "Solution after %d days:\n", days)
	for _, i := range hydrochem.SortedIons(last) {
		fmt.Fprintf(w, "\t%-10s %v\n", i, Concentration(last[i]))
	}
	switch {
	case len(a.Missing) > 0:
		fmt.Fprintf(w, "The solution lacks ions the plant needs: %v\n", a.Missing)
	case !a.Sufficient:
		fmt.Fprintf(w, "Growth is limited after %d days by %v\n", a.Days, a.Limiting)
	}
	fmt.Fprintln(w, SummarizePH(phs, exceeded))
	for _, d := range exceeded {
		fmt.Fprintf(w, "\tday %d: pH %.4f\n", d, phs[d])
	}
	log.WithField("file", cfg.OutputFile).Info("hydrochem: wrote trajectory")
	return nil
}

// Analyse prints how long a plant can grow in volume [L] of a solution.
func Analyse(w io.Writer, c *hydrochem.Catalogue, solution map[string]float64, input growth.Input, needs map[hydrochem.Ion]float64, growthTime, volume float64) (growth.Analysis, error) {
	a, err := growth.Analyse(c, solution, input, needs, growthTime, volume)
	if err != nil {
		return a, err
	}
	switch {
	case len(a.Missing) > 0:
		fmt.Fprintf(w, "The solution lacks ions the plant needs: %v\n", a.Missing)
	case a.Sufficient:
		fmt.Fprintf(w, "The solution is sufficient for the whole growth time (%d days).\n", a.Days)
	default:
		fmt.Fprintf(w, "The solution lasts %d days; limiting ions: %v\n", a.Days, a.Limiting)
	}
	return a, nil
}

// Refill prints the amount of each ion that must be added to volume [L] of
// a solution with the given current concentrations [g/L] to reach the
// optimal concentrations [mol/L]. Ions within tolerancePct percent of the
// optimum are skipped.
func Refill(w io.Writer, c *hydrochem.Catalogue, current map[string]float64, input growth.Input, optimal map[hydrochem.Ion]float64, tolerancePct, volume float64) (map[hydrochem.Ion]float64, error) {
	if volume <= 0 {
		return nil, hydrochem.ErrVolume
	}
	conc, err := concentrations(c, current, input)
	if err != nil {
		return nil, err
	}
	molar, err := c.ToMolar(conc)
	if err != nil {
		return nil, err
	}
	diff, err := growth.Refill(molar, optimal, tolerancePct)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "Ions to add to %v L of solution (negative values are in excess):\n", volume)
	for _, i := range hydrochem.SortedIons(diff) {
		mm, err := c.IonMolarMass(i)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "\t%-10s %v\t%v\n", i, Amount(diff[i]*volume), Mass(diff[i]*volume*mm))
	}
	return diff, nil
}
