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
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/hydrochem"
	"github.com/spatialmodel/hydrochem/science/ph"
)

// Plant is a crop profile.
type Plant struct {
	Name string

	// GrowthTime is the expected growth time [days].
	GrowthTime float64 `toml:"growth_time"`

	// Needs is the total amount of each ion the plant takes up over its
	// growth time [g], keyed by ion spelling.
	Needs map[string]float64

	// PHMin and PHMax, when set, override the corresponding bound of the
	// plant's default pH band.
	PHMin float64 `toml:"ph_min"`
	PHMax float64 `toml:"ph_max"`
}

// Requirement returns the plant's needs keyed by catalogue ion.
func (p *Plant) Requirement(c *hydrochem.Catalogue) (map[hydrochem.Ion]float64, error) {
	o, err := c.ResolveIons(p.Needs)
	if err != nil {
		return nil, fmt.Errorf("growth: plant %s: %w", p.Name, err)
	}
	return o, nil
}

// Band returns the acceptable pH range of the plant.
func (p *Plant) Band() ph.Band {
	b := ph.BandFor(p.Name)
	if p.PHMin != 0 {
		b.Min = p.PHMin
	}
	if p.PHMax != 0 {
		b.Max = p.PHMax
	}
	return b
}

// LoadPlants reads plant profiles from a TOML document with one [[plant]]
// table per profile.
func LoadPlants(r io.Reader) ([]*Plant, error) {
	var doc struct {
		Plant []*Plant
	}
	if _, err := toml.DecodeReader(r, &doc); err != nil {
		return nil, fmt.Errorf("growth: reading plant profiles: %w", err)
	}
	for _, p := range doc.Plant {
		if p.Name == "" {
			return nil, fmt.Errorf("growth: plant profile has no name")
		}
		if p.GrowthTime <= 0 {
			return nil, fmt.Errorf("growth: plant %s: growth_time must be positive", p.Name)
		}
		if b := p.Band(); b.Min >= b.Max {
			return nil, fmt.Errorf("growth: plant %s: pH range %g to %g is empty", p.Name, b.Min, b.Max)
		}
	}
	return doc.Plant, nil
}
