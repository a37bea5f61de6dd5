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
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hydrochem"
	"github.com/spf13/cast"
)

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) map[string]string {
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.xlsx")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("hydrochem: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// siblingFile returns the path of outputFile with its extension replaced by
// suffix, for example "run.xlsx" and "_ph.png" give "run_ph.png".
func siblingFile(outputFile, suffix string) string {
	return strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + suffix
}

// checkVolume makes sure that the solution volume is positive.
func checkVolume(v float64) (float64, error) {
	if !(v > 0) {
		return v, hydrochem.ErrVolume
	}
	return v, nil
}

// setLogLevel sets the level of the standard logger from its name.
func setLogLevel(level string) error {
	if level == "" {
		return nil
	}
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("hydrochem: LogLevel: %v", err)
	}
	logrus.SetLevel(l)
	return nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return make(map[string]string), nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		if v == "" {
			return make(map[string]string), nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("hydrochem: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("hydrochem: invalid type for variable %s: %#v", varName, i)
	}
}

// getStringMapFloat64 returns a map[string]float64 from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func getStringMapFloat64(varName string, cfg *viper.Viper) (map[string]float64, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return make(map[string]float64), nil
	case map[string]float64:
		return v, nil
	case map[string]interface{}:
		o := make(map[string]float64, len(v))
		for k, val := range v {
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return nil, fmt.Errorf("hydrochem: parsing %s.%s: %v", varName, k, err)
			}
			o[k] = f
		}
		return o, nil
	case string:
		if v == "" {
			return make(map[string]float64), nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		o := make(map[string]float64)
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("hydrochem: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("hydrochem: invalid type for variable %s: %#v", varName, i)
	}
}

// loadCatalogue returns the built-in catalogue, extended with the TOML file
// at path if path is not empty.
func loadCatalogue(path string) (*hydrochem.Catalogue, error) {
	c, err := hydrochem.Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hydrochem: opening catalogue: %v", err)
	}
	defer f.Close()
	return c.Extend(f)
}
