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
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/growth"
	"github.com/spatialmodel/hydrochem/science/ph"
)

const plantFile = "../data/plants.toml"

// lettuceSolution is a salt solution [g/L] in which potassium runs out
// first when growing lettuce.
var lettuceSolution = map[string]float64{
	"KNO3":     0.5,
	"Ca(NO3)2": 0.8,
	"MgSO4":    0.25,
	"KH2PO4":   0.14,
}

func execute(t *testing.T, args ...string) string {
	var b bytes.Buffer
	Root.SetOutput(&b)
	Root.SetArgs(args)
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func TestVersion(t *testing.T) {
	out := execute(t, "version")
	if want := "HydroChem v" + hydrochem.Version; !strings.Contains(out, want) {
		t.Errorf("have %q, want %q", out, want)
	}
}

func TestMixCmd(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	outputFile := filepath.Join(dir, "salts.xlsx")

	Cfg.Set("Target", map[string]float64{"K+": 0.5, "Cl-": 0.6, "Br-": 0.1, "SO4(2-)": 0.5})
	Cfg.Set("Forbidden", []string{"NO3-"})
	Cfg.Set("Volume", 10.0)
	Cfg.Set("OutputFile", outputFile)
	out := execute(t, "mix")
	if !strings.Contains(out, "KBr") {
		t.Errorf("output does not list KBr: %s", out)
	}

	salts, err := LoadColumn(outputFile, "Salts", 0, "Salt", "Mass [g]")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{
		"KH2PO4": 15.6997,
		"MnCl2":  10.6492,
		"KBr":    1.48932,
		"MgSO4":  6.26515,
	}
	if len(salts) != len(want) {
		t.Fatalf("have %v, want %v", salts, want)
	}
	for s, g := range want {
		if different(salts[s], g, 1e-3) {
			t.Errorf("%s: have %g g, want %g g", s, salts[s], g)
		}
	}
}

func TestProjectCmd(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	outputFile := filepath.Join(dir, "run.xlsx")

	Cfg.Set("Solution", lettuceSolution)
	Cfg.Set("InputFile", "")
	Cfg.Set("InputType", "salt")
	Cfg.Set("PlantFile", plantFile)
	Cfg.Set("Plant", "Lettuce")
	Cfg.Set("Volume", 10.0)
	Cfg.Set("Days", 5)
	Cfg.Set("OutputFile", outputFile)
	Cfg.Set("OutputVariables", `{"NtoK": "[NO3-] / [K+]"}`)
	out := execute(t, "project")
	if !strings.Contains(out, "Solution after 5 days") || !strings.Contains(out, "pH mean") {
		t.Errorf("unexpected output: %s", out)
	}

	for _, f := range []string{outputFile, filepath.Join(dir, "run_ions.png"), filepath.Join(dir, "run_ph.png")} {
		if _, err := os.Stat(f); err != nil {
			t.Error(err)
		}
	}
	k, err := LoadColumn(outputFile, "Trajectory", 0, "Day", "K+ [g/L]")
	if err != nil {
		t.Fatal(err)
	}
	if len(k) != 6 {
		t.Fatalf("have %d days, want 6", len(k))
	}
	// Lettuce takes up 7 g of potassium over 45 days from 10 L.
	if different(k["0"]-k["5"], 5*7./45/10, 1e-6) {
		t.Errorf("potassium uptake: have %g g/L, want %g g/L", k["0"]-k["5"], 5*7./45/10)
	}
	ratio, err := LoadColumn(outputFile, "Trajectory", 0, "Day", "NtoK")
	if err != nil {
		t.Fatal(err)
	}
	if !(ratio["5"] > ratio["0"]) {
		t.Errorf("the nitrate to potassium ratio should increase: %v", ratio)
	}
}

func TestAnalyseCmd(t *testing.T) {
	Cfg.Set("Solution", lettuceSolution)
	Cfg.Set("InputFile", "")
	Cfg.Set("InputType", "salt")
	Cfg.Set("PlantFile", plantFile)
	Cfg.Set("Plant", "Lettuce")
	Cfg.Set("GrowthTime", 0.0)
	Cfg.Set("Volume", 10.0)
	out := execute(t, "analyse")
	if want := "lasts 15 days; limiting ions: [K+]"; !strings.Contains(out, want) {
		t.Errorf("have %q, want it to contain %q", out, want)
	}
}

func TestPlantFromInputFile(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	file := writeUserData(t, dir)

	Cfg.Set("InputFile", file)
	Cfg.Set("SolutionName", "Solution A")
	Cfg.Set("PlantFile", "")
	Cfg.Set("Plant", "Eggplant")
	Cfg.Set("GrowthTime", 10.0)
	defer Cfg.Set("InputFile", "")

	sol, err := solution()
	if err != nil {
		t.Fatal(err)
	}
	if want := map[string]float64{"KNO3": 0.5, "MgSO4": 0.25}; !reflect.DeepEqual(sol, want) {
		t.Errorf("solution: have %v, want %v", sol, want)
	}
	c := hydrochem.MustDefault()
	needs, growthTime, band, err := plant(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(needs) != 3 || growthTime != 10 || band != ph.Bands["Eggplant"] {
		t.Errorf("have %v, %g days, %v", needs, growthTime, band)
	}
	optimal, err := optimalSolution(c)
	if err != nil {
		t.Fatal(err)
	}
	if optimal[hydrochem.MustParseIon("K+")] != 0.005 {
		t.Errorf("optimal: %v", optimal)
	}
}

func TestPlantMissing(t *testing.T) {
	Cfg.Set("InputFile", "")
	Cfg.Set("PlantFile", "")
	if _, _, _, err := plant(hydrochem.MustDefault()); err == nil {
		t.Error("expected an error without a plant source")
	}
	Cfg.Set("PlantFile", plantFile)
	Cfg.Set("Plant", "Tomato")
	if _, _, _, err := plant(hydrochem.MustDefault()); err == nil {
		t.Error("expected an error for a plant that is not in the file")
	}
}

func TestCheck(t *testing.T) {
	var b bytes.Buffer
	a, err := Check(&b, hydrochem.MustDefault(), map[string]float64{
		"MnCl2":    0.0223,
		"KNO3":     493,
		"Ca(NO3)2": 0.945,
	}, growth.SaltInput)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"KNO3"}; !reflect.DeepEqual(a.Precipitated, want) {
		t.Errorf("have %v, want %v", a.Precipitated, want)
	}
	if !strings.Contains(b.String(), "KNO3") {
		t.Errorf("output: %s", b.String())
	}
}

func TestIons(t *testing.T) {
	var b bytes.Buffer
	if err := Ions(&b, hydrochem.MustDefault(), map[string]float64{"KNO3": 0.01}, 2, hydrochem.Moles); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, i := range []string{"K+", "NO3-", "0.02 mole"} {
		if !strings.Contains(out, i) {
			t.Errorf("output does not contain %q: %s", i, out)
		}
	}
	if err := Ions(&b, hydrochem.MustDefault(), map[string]float64{"KNO3": 0.01}, 0, hydrochem.Moles); err != hydrochem.ErrVolume {
		t.Errorf("have %v, want %v", err, hydrochem.ErrVolume)
	}
}

func TestPH(t *testing.T) {
	var b bytes.Buffer
	log := logrus.New()
	log.Out = testWriter{t}
	r, err := PH(&b, hydrochem.MustDefault(), map[string]float64{"KNO3": 1}, growth.SaltInput, 25, ph.Band{Min: 6.5, Max: 7.5}, log)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Converged || r.PH < 6.9 || r.PH > 7.1 {
		t.Errorf("pH: %+v", r)
	}
	if !strings.Contains(b.String(), "within the acceptable range") {
		t.Errorf("output: %s", b.String())
	}
	if _, err := PH(&b, hydrochem.MustDefault(), map[string]float64{"KNO3": 1}, growth.SaltInput, 30, ph.DefaultBand, log); err == nil {
		t.Error("expected an error for a temperature without Kw")
	}
}

func TestRefill(t *testing.T) {
	c := hydrochem.MustDefault()
	k := hydrochem.MustParseIon("K+")
	no3 := hydrochem.MustParseIon("NO3-")
	mmK, err := c.IonMolarMass(k)
	if err != nil {
		t.Fatal(err)
	}
	mmNO3, err := c.IonMolarMass(no3)
	if err != nil {
		t.Fatal(err)
	}
	current := map[string]float64{
		"K+":   0.005 * mmK,   // g/L
		"NO3-": 0.0199 * mmNO3, // g/L
	}
	optimal := map[hydrochem.Ion]float64{k: 0.01, no3: 0.02} // mol/L

	var b bytes.Buffer
	diff, err := Refill(&b, c, current, growth.IonInput, optimal, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(diff) != 1 || different(diff[k], 0.005, 1e-9) {
		t.Errorf("have %v, want only K+ = 0.005", diff)
	}
	if !strings.Contains(b.String(), "K+") {
		t.Errorf("output: %s", b.String())
	}
	if _, err := Refill(&b, c, current, growth.IonInput, optimal, 1, 0); err != hydrochem.ErrVolume {
		t.Errorf("have %v, want %v", err, hydrochem.ErrVolume)
	}
}
