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
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/growth"
	"github.com/spatialmodel/hydrochem/science/ph"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// solutionFlags are the flag sets of the commands that read a solution.
	solutionFlags := []*pflag.FlagSet{ionsCmd.Flags(), checkCmd.Flags(), phCmd.Flags(),
		projectCmd.Flags(), analyseCmd.Flags(), refillCmd.Flags()}
	plantFlags := []*pflag.FlagSet{phCmd.Flags(), projectCmd.Flags(), analyseCmd.Flags(),
		refillCmd.Flags()}

	// Options are the configuration options available to HydroChem.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages to print. Valid options
              are "debug", "info", "warning" and "error".`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Catalogue",
			usage: `
              Catalogue is the path to a TOML file with salts, acids, metals and
              solubility products that extend or replace the built-in catalogue.
              It can include environment variables or be a URL.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile is the path to a spreadsheet with the sheets "My Solution",
              "My plant" and "Optimal Solution". If it is left blank, the solution
              is read from the Solution variable and the plant from PlantFile.
              It can include environment variables or be a URL.`,
			defaultVal: "",
			flagsets:   solutionFlags,
		},
		{
			name: "SolutionName",
			usage: `
              SolutionName is the heading of the column of the "My Solution" sheet
              in InputFile that holds the solution.`,
			defaultVal: "Solution",
			flagsets:   solutionFlags,
		},
		{
			name: "Solution",
			usage: `
              Solution gives the concentration of each salt or ion in the solution,
              in g/L. It is used when InputFile is blank.`,
			defaultVal: map[string]float64{
				"KNO3":     0.5,
				"Ca(NO3)2": 0.8,
				"MgSO4":    0.25,
				"KH2PO4":   0.14,
			},
			flagsets: solutionFlags,
		},
		{
			name: "InputType",
			usage: `
              InputType specifies whether the solution is given as salt ("salt") or
              ion ("ion") concentrations.`,
			defaultVal: "salt",
			flagsets:   []*pflag.FlagSet{checkCmd.Flags(), phCmd.Flags(), projectCmd.Flags(), analyseCmd.Flags(), refillCmd.Flags()},
		},
		{
			name: "Unit",
			usage: `
              Unit is the unit of the salt concentrations: "g" for g/L or "mol"
              for mol/L.`,
			defaultVal: "g",
			flagsets:   []*pflag.FlagSet{ionsCmd.Flags()},
		},
		{
			name: "Plant",
			usage: `
              Plant is the name of the plant being grown. It selects the profile in
              PlantFile or the column of the "My plant" sheet in InputFile, and the
              acceptable pH range.`,
			shorthand:  "p",
			defaultVal: "Eggplant",
			flagsets:   plantFlags,
		},
		{
			name: "PlantFile",
			usage: `
              PlantFile is the path to a TOML file with plant profiles. It can
              include environment variables or be a URL.`,
			defaultVal: "",
			flagsets:   plantFlags,
		},
		{
			name: "GrowthTime",
			usage: `
              GrowthTime is the growth time of the plant in days. If it is zero the
              growth time from the plant profile is used.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{projectCmd.Flags(), analyseCmd.Flags()},
		},
		{
			name: "Volume",
			usage: `
              Volume is the volume of the solution in liters.`,
			shorthand:  "v",
			defaultVal: 10.0,
			flagsets:   []*pflag.FlagSet{mixCmd.Flags(), ionsCmd.Flags(), projectCmd.Flags(), analyseCmd.Flags(), refillCmd.Flags()},
		},
		{
			name: "Temperature",
			usage: `
              Temperature is the temperature of the solution in °C. It must be one
              of the temperatures for which the ion product of water is known.`,
			defaultVal: 25.0,
			flagsets:   []*pflag.FlagSet{phCmd.Flags(), projectCmd.Flags()},
		},
		{
			name: "Days",
			usage: `
              Days is the number of days to project. If it is zero the growth time
              of the plant is used.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{projectCmd.Flags()},
		},
		{
			name: "Target",
			usage: `
              Target gives the desired concentration of each ion in g/L.`,
			defaultVal: map[string]float64{
				"K+":      0.3,
				"NO3-":    0.6,
				"Ca(2+)":  0.15,
				"SO4(2-)": 0.1,
			},
			flagsets: []*pflag.FlagSet{mixCmd.Flags()},
		},
		{
			name: "Forbidden",
			usage: `
              Forbidden lists ions that must not be contained in any of the salts
              used to make the solution.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{mixCmd.Flags()},
		},
		{
			name: "Optimal",
			usage: `
              Optimal gives the optimal concentration of each ion in mol/L. It is
              used when InputFile is blank.`,
			defaultVal: map[string]float64{},
			flagsets:   []*pflag.FlagSet{refillCmd.Flags()},
		},
		{
			name: "Tolerance",
			usage: `
              Tolerance is the deviation from the optimal concentration, in percent,
              below which an ion is not refilled.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{refillCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired output spreadsheet location.
              Plots are saved next to it. It can include environment variables.`,
			shorthand:  "o",
			defaultVal: "hydrochem_output.xlsx",
			flagsets:   []*pflag.FlagSet{mixCmd.Flags(), projectCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies derived variables to calculate for each day
              of a projection. Ion concentrations [g/L] are referred to by name in
              square brackets, and Day, pH and Total (the sum of all ion
              concentrations) are also available. It can include environment variables.`,
			defaultVal: map[string]string{
				"NtoK": "[NO3-] / [K+]",
				"N":    "[NO3-] + [NH4+]",
			},
			flagsets: []*pflag.FlagSet{projectCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("HYDROCHEM")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string, map[string]float64:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(bytes.TrimSpace(b.Bytes()))
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
	Cfg.AutomaticEnv()
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(mixCmd)
	Root.AddCommand(ionsCmd)
	Root.AddCommand(checkCmd)
	Root.AddCommand(phCmd)
	Root.AddCommand(projectCmd)
	Root.AddCommand(analyseCmd)
	Root.AddCommand(refillCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("hydrochem: problem reading configuration file: %v", err)
		}
	}
	return setLogLevel(Cfg.GetString("LogLevel"))
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "hydrochem",
	Short: "A hydroponic nutrient chemistry calculator.",
	Long: `HydroChem calculates the chemistry of hydroponic nutrient solutions:
the salts needed to make a solution, the ions they release, which salts
precipitate, the pH of the solution and how it changes as a plant grows.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'HYDROCHEM_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of HydroChem.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("HydroChem v%s\n", hydrochem.Version)
	},
	DisableAutoGenTag: true,
}

var mixCmd = &cobra.Command{
	Use:   "mix",
	Short: "Calculate the salts needed to make a solution.",
	Long: `mix calculates the mass of each salt that must be dissolved in Volume
liters of water to obtain the ion concentrations given in Target, without
using any salt that contains one of the Forbidden ions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalogue()
		if err != nil {
			return err
		}
		target, err := getStringMapFloat64("Target", Cfg)
		if err != nil {
			return err
		}
		volume, err := checkVolume(Cfg.GetFloat64("Volume"))
		if err != nil {
			return err
		}
		outputFile := Cfg.GetString("OutputFile")
		if outputFile != "" {
			if outputFile, err = checkOutputFile(outputFile); err != nil {
				return err
			}
		}
		return Mix(cmd.OutOrStdout(), c, target,
			expandStringSlice(Cfg.GetStringSlice("Forbidden")),
			volume, outputFile, logrus.StandardLogger())
	},
	DisableAutoGenTag: true,
}

var ionsCmd = &cobra.Command{
	Use:   "ions",
	Short: "Calculate the ions released by a salt solution.",
	Long: `ions calculates the amount of each ion released when the salts of the
solution are dissolved in Volume liters of water.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalogue()
		if err != nil {
			return err
		}
		sol, err := solution()
		if err != nil {
			return err
		}
		u, err := hydrochem.ParseUnit(Cfg.GetString("Unit"))
		if err != nil {
			return err
		}
		return Ions(cmd.OutOrStdout(), c, sol, Cfg.GetFloat64("Volume"), u)
	},
	DisableAutoGenTag: true,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which salts precipitate.",
	Long: `check compares the ion activity product of every salt in the catalogue
with its solubility product and lists the salts that precipitate from the
solution.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalogue()
		if err != nil {
			return err
		}
		sol, input, err := solutionInput()
		if err != nil {
			return err
		}
		_, err = Check(cmd.OutOrStdout(), c, sol, input)
		return err
	},
	DisableAutoGenTag: true,
}

var phCmd = &cobra.Command{
	Use:   "ph",
	Short: "Calculate the pH of a solution.",
	Long: `ph solves the acid-base equilibria of the solution at the given
Temperature and reports its pH and whether it is acceptable for Plant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalogue()
		if err != nil {
			return err
		}
		sol, input, err := solutionInput()
		if err != nil {
			return err
		}
		band := ph.BandFor(Cfg.GetString("Plant"))
		if Cfg.GetString("PlantFile") != "" {
			p, err := plantProfile()
			if err != nil {
				return err
			}
			band = p.Band()
		}
		_, err = PH(cmd.OutOrStdout(), c, sol, input, Cfg.GetFloat64("Temperature"), band, logrus.StandardLogger())
		return err
	},
	DisableAutoGenTag: true,
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project the solution over the growth of a plant.",
	Long: `project simulates the daily uptake of nutrients by Plant from Volume
liters of the solution, removes salts that precipitate, and solves the pH of
every day. The daily concentrations, pH and OutputVariables are saved to
OutputFile, and plots of the ion concentrations and pH are saved next to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalogue()
		if err != nil {
			return err
		}
		sol, input, err := solutionInput()
		if err != nil {
			return err
		}
		needs, growthTime, band, err := plant(c)
		if err != nil {
			return err
		}
		volume, err := checkVolume(Cfg.GetFloat64("Volume"))
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		vars, err := GetStringMapString("OutputVariables", Cfg)
		if err != nil {
			return err
		}
		return Project(cmd.OutOrStdout(), c, &ProjectConfig{
			Solution:        sol,
			Input:           input,
			Needs:           needs,
			GrowthTime:      growthTime,
			Band:            band,
			Volume:          volume,
			Temperature:     Cfg.GetFloat64("Temperature"),
			Days:            Cfg.GetInt("Days"),
			OutputFile:      outputFile,
			OutputVariables: checkOutputVars(vars),
		}, logrus.StandardLogger())
	},
	DisableAutoGenTag: true,
}

var analyseCmd = &cobra.Command{
	Use:     "analyse",
	Aliases: []string{"analyze"},
	Short:   "Calculate how long a solution lasts.",
	Long: `analyse calculates how many days Volume liters of the solution can
sustain Plant, and which ions run out first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalogue()
		if err != nil {
			return err
		}
		sol, input, err := solutionInput()
		if err != nil {
			return err
		}
		needs, growthTime, _, err := plant(c)
		if err != nil {
			return err
		}
		_, err = Analyse(cmd.OutOrStdout(), c, sol, input, needs, growthTime, Cfg.GetFloat64("Volume"))
		return err
	},
	DisableAutoGenTag: true,
}

var refillCmd = &cobra.Command{
	Use:   "refill",
	Short: "Calculate the ions needed to restore a solution.",
	Long: `refill compares the solution with the optimal solution for Plant and
calculates the amount of each ion that must be added to Volume liters of it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalogue()
		if err != nil {
			return err
		}
		sol, input, err := solutionInput()
		if err != nil {
			return err
		}
		optimal, err := optimalSolution(c)
		if err != nil {
			return err
		}
		_, err = Refill(cmd.OutOrStdout(), c, sol, input, optimal,
			Cfg.GetFloat64("Tolerance"), Cfg.GetFloat64("Volume"))
		return err
	},
	DisableAutoGenTag: true,
}

// catalogue returns the catalogue specified by the configuration.
func catalogue() (*hydrochem.Catalogue, error) {
	return loadCatalogue(maybeDownload(os.ExpandEnv(Cfg.GetString("Catalogue")), logrus.StandardLogger()))
}

// inputFile returns the local path of the configured input spreadsheet.
func inputFile() string {
	return maybeDownload(os.ExpandEnv(Cfg.GetString("InputFile")), logrus.StandardLogger())
}

// solution returns the solution specified by the configuration.
func solution() (map[string]float64, error) {
	if f := inputFile(); f != "" {
		return LoadSolution(f, os.ExpandEnv(Cfg.GetString("SolutionName")))
	}
	return getStringMapFloat64("Solution", Cfg)
}

// solutionInput returns the solution specified by the configuration and
// whether it holds salt or ion concentrations.
func solutionInput() (map[string]float64, growth.Input, error) {
	input, err := growth.ParseInput(Cfg.GetString("InputType"))
	if err != nil {
		return nil, input, err
	}
	sol, err := solution()
	return sol, input, err
}

// plantProfile returns the profile of the configured plant from PlantFile.
func plantProfile() (*growth.Plant, error) {
	f, err := os.Open(maybeDownload(os.ExpandEnv(Cfg.GetString("PlantFile")), logrus.StandardLogger()))
	if err != nil {
		return nil, fmt.Errorf("hydrochem: opening plant file: %v", err)
	}
	defer f.Close()
	plants, err := growth.LoadPlants(f)
	if err != nil {
		return nil, err
	}
	name := Cfg.GetString("Plant")
	for _, p := range plants {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("hydrochem: plant %q is not in %s", name, Cfg.GetString("PlantFile"))
}

// plant returns the total requirement [g], growth time [days] and
// acceptable pH range of the configured plant.
func plant(c *hydrochem.Catalogue) (map[hydrochem.Ion]float64, float64, ph.Band, error) {
	name := Cfg.GetString("Plant")
	growthTime := Cfg.GetFloat64("GrowthTime")
	if Cfg.GetString("PlantFile") != "" {
		p, err := plantProfile()
		if err != nil {
			return nil, 0, ph.Band{}, err
		}
		needs, err := p.Requirement(c)
		if err != nil {
			return nil, 0, ph.Band{}, err
		}
		if growthTime <= 0 {
			growthTime = p.GrowthTime
		}
		return needs, growthTime, p.Band(), nil
	}
	f := inputFile()
	if f == "" {
		return nil, 0, ph.Band{}, fmt.Errorf("hydrochem: either PlantFile or InputFile must be specified")
	}
	needs, err := LoadPlant(c, f, name)
	if err != nil {
		return nil, 0, ph.Band{}, err
	}
	return needs, growthTime, ph.BandFor(name), nil
}

// optimalSolution returns the optimal ion concentrations [mol/L] of the
// configured plant.
func optimalSolution(c *hydrochem.Catalogue) (map[hydrochem.Ion]float64, error) {
	if f := inputFile(); f != "" {
		return LoadOptimal(c, f, Cfg.GetString("Plant"))
	}
	o, err := getStringMapFloat64("Optimal", Cfg)
	if err != nil {
		return nil, err
	}
	return c.ResolveIons(o)
}
