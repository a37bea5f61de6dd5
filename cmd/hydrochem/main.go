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

// Command hydrochem is a command-line interface for the HydroChem
// hydroponic nutrient chemistry calculator.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hydrochem/hydroutil"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := hydroutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
