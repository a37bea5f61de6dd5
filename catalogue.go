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

package hydrochem

import (
	"bytes"
	_ "embed" // Needed for the built-in catalogue.
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/hydrochem/formula"
)

//go:embed data/catalogue.toml
var builtinCatalogue []byte

// Stoich is an ion and the number of times it occurs in one formula unit
// of a salt.
type Stoich struct {
	Ion   Ion
	Count int
}

// Salt is a catalogue salt.
type Salt struct {
	// Formula is the chemical formula, which is also the salt's key.
	Formula string

	// Name is an optional alternative key, e.g. "Fe(III)EDTANa".
	Name string

	// Ions lists the ions released on dissolution in table order.
	Ions []Stoich

	// Phase holds the multiplicities used when deriving Ksp from the
	// solubility. It has one entry per ion.
	Phase []int

	// MolarMass is the molar mass of Formula [g/mol].
	MolarMass float64
}

// Contains returns the number of ion i released per formula unit of s.
func (s *Salt) Contains(i Ion) int {
	for _, st := range s.Ions {
		if st.Ion == i {
			return st.Count
		}
	}
	return 0
}

// Acid is a polyprotic acid (or acid-like cation such as NH4+) with its
// successive dissociation constants.
type Acid struct {
	Name string

	// PKa are the successive -log10(Ka) values.
	PKa []float64

	// Charge is the charge of the fully protonated form.
	Charge int

	// States are the species names of the protonation states, from the
	// fully protonated form (state 0) to the fully deprotonated form
	// (state len(PKa)).
	States []string
}

// Ka returns the dissociation constant between state s and state s+1.
func (a *Acid) Ka(s int) float64 { return math.Pow(10, -a.PKa[s]) }

// Ion returns the ion representing protonation state s.
func (a *Acid) Ion(s int) Ion { return Ion{Species: a.States[s], Charge: a.Charge - s} }

// State returns the protonation state whose species matches the species
// of i.
func (a *Acid) State(i Ion) (int, bool) {
	for s, sp := range a.States {
		if sp == i.Species {
			return s, true
		}
	}
	return 0, false
}

// Metal is a cation that forms a hydroxide M(OH)z.
type Metal struct {
	Species string
	Charge  int

	// Ksp is the hydroxide equilibrium constant [M][OH]^z / [M(OH)z].
	Ksp float64
}

// Ion returns the free metal ion.
func (m *Metal) Ion() Ion { return Ion{Species: m.Species, Charge: m.Charge} }

// Catalogue holds the static chemistry tables. A Catalogue must not be
// modified after it has been created; it is safe for concurrent use.
type Catalogue struct {
	// Salts are in search order.
	Salts []*Salt

	// Solubility holds the solubility of each salt [g/100 mL], by formula.
	Solubility map[string]float64

	// IonFormulas maps abbreviated ion species to the formulas used to
	// weigh them.
	IonFormulas map[string]string

	Acids  []*Acid
	Metals []*Metal

	// Kw is the ion product of water by temperature [°C].
	Kw map[float64]float64

	salts   map[string]*Salt
	ions    map[Ion]bool
	species map[string][]Ion
}

type rawCatalogue struct {
	Salt []struct {
		Formula string
		Name    string
		Ions    []struct {
			Ion string
			N   int
		}
		Phase []int
	}
	Solubility map[string]float64
	IonFormula map[string]string `toml:"ion_formula"`
	Acid       []struct {
		Name   string
		PKa    []float64 `toml:"pka"`
		Charge int
		States []string
	}
	Metal []struct {
		Species string
		Charge  int
		Ksp     float64
	}
	Kw map[string]float64
}

var (
	defaultCatalogue    *Catalogue
	defaultCatalogueErr error
	defaultOnce         sync.Once
)

// Default returns the built-in catalogue. It is loaded and validated on
// first use.
func Default() (*Catalogue, error) {
	defaultOnce.Do(func() {
		defaultCatalogue, defaultCatalogueErr = LoadCatalogue(bytes.NewReader(builtinCatalogue))
	})
	return defaultCatalogue, defaultCatalogueErr
}

// MustDefault is like Default but panics if the built-in catalogue is
// invalid.
func MustDefault() *Catalogue {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalogue reads a catalogue in TOML format from r and validates it.
func LoadCatalogue(r io.Reader) (*Catalogue, error) {
	c := new(Catalogue)
	if err := c.decode(r); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Extend returns a new catalogue holding the entries of c overlaid with the
// entries read from r. Salts, acids and metals that are already present are
// replaced in place; new ones are appended.
func (c *Catalogue) Extend(r io.Reader) (*Catalogue, error) {
	o := &Catalogue{
		Salts:       make([]*Salt, len(c.Salts)),
		Solubility:  make(map[string]float64),
		IonFormulas: make(map[string]string),
		Acids:       append([]*Acid{}, c.Acids...),
		Metals:      append([]*Metal{}, c.Metals...),
		Kw:          make(map[float64]float64),
	}
	// Validate writes the molar masses; c's salts stay untouched.
	for i, s := range c.Salts {
		cp := *s
		o.Salts[i] = &cp
	}
	for k, v := range c.Solubility {
		o.Solubility[k] = v
	}
	for k, v := range c.IonFormulas {
		o.IonFormulas[k] = v
	}
	for k, v := range c.Kw {
		o.Kw[k] = v
	}
	if err := o.decode(r); err != nil {
		return nil, err
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// decode reads TOML catalogue entries from r into c.
func (c *Catalogue) decode(r io.Reader) error {
	var raw rawCatalogue
	if _, err := toml.DecodeReader(r, &raw); err != nil {
		return fmt.Errorf("hydrochem: decoding catalogue: %v", err)
	}
	if c.Solubility == nil {
		c.Solubility = make(map[string]float64)
	}
	if c.IonFormulas == nil {
		c.IonFormulas = make(map[string]string)
	}
	if c.Kw == nil {
		c.Kw = make(map[float64]float64)
	}
	for _, rs := range raw.Salt {
		s := &Salt{Formula: rs.Formula, Name: rs.Name, Phase: rs.Phase}
		for _, ri := range rs.Ions {
			ion, err := ParseIon(ri.Ion)
			if err != nil {
				return fmt.Errorf("hydrochem: salt %s: %v", rs.Formula, err)
			}
			s.Ions = append(s.Ions, Stoich{Ion: ion, Count: ri.N})
		}
		replaced := false
		for i, old := range c.Salts {
			if old.Formula == s.Formula {
				c.Salts[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			c.Salts = append(c.Salts, s)
		}
	}
	for k, v := range raw.Solubility {
		c.Solubility[k] = v
	}
	for k, v := range raw.IonFormula {
		c.IonFormulas[k] = v
	}
	for _, ra := range raw.Acid {
		a := &Acid{Name: ra.Name, PKa: ra.PKa, Charge: ra.Charge, States: ra.States}
		if len(a.States) == 0 {
			states, err := protonationStates(a.Name, len(a.PKa))
			if err != nil {
				return err
			}
			a.States = states
		}
		replaced := false
		for i, old := range c.Acids {
			if old.Name == a.Name {
				c.Acids[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			c.Acids = append(c.Acids, a)
		}
	}
	for _, rm := range raw.Metal {
		m := &Metal{Species: rm.Species, Charge: rm.Charge, Ksp: rm.Ksp}
		replaced := false
		for i, old := range c.Metals {
			if old.Species == m.Species && old.Charge == m.Charge {
				c.Metals[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			c.Metals = append(c.Metals, m)
		}
	}
	for k, v := range raw.Kw {
		t, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return fmt.Errorf("hydrochem: invalid Kw temperature %q: %v", k, err)
		}
		c.Kw[t] = v
	}
	return nil
}

var leadingH = regexp.MustCompile(`^H([0-9]*)([A-Z].*)$`)

// protonationStates derives the species names of the protonation states of
// acid name by removing one hydrogen per dissociation step, e.g.
// H3PO4, H2PO4, HPO4, PO4.
func protonationStates(name string, steps int) ([]string, error) {
	m := leadingH.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("hydrochem: cannot derive protonation states of acid %s; list them explicitly", name)
	}
	n := 1
	if m[1] != "" {
		n, _ = strconv.Atoi(m[1])
	}
	if steps > n {
		return nil, fmt.Errorf("hydrochem: acid %s has %d pKa values but only %d protons", name, steps, n)
	}
	states := make([]string, steps+1)
	for s := 0; s <= steps; s++ {
		switch h := n - s; h {
		case 0:
			states[s] = m[2]
		case 1:
			states[s] = "H" + m[2]
		default:
			states[s] = fmt.Sprintf("H%d%s", h, m[2])
		}
	}
	return states, nil
}

// Validate checks the consistency of the catalogue tables and builds the
// lookup indices. It is called by LoadCatalogue and Extend.
func (c *Catalogue) Validate() error {
	c.salts = make(map[string]*Salt)
	c.ions = make(map[Ion]bool)
	c.species = make(map[string][]Ion)
	addIon := func(i Ion) {
		if c.ions[i] {
			return
		}
		c.ions[i] = true
		c.species[i.Species] = append(c.species[i.Species], i)
	}
	for _, s := range c.Salts {
		if len(s.Ions) == 0 {
			return fmt.Errorf("hydrochem: salt %s has no ions", s.Formula)
		}
		if len(s.Phase) != len(s.Ions) {
			return fmt.Errorf("hydrochem: salt %s has %d ions but %d phase coefficients",
				s.Formula, len(s.Ions), len(s.Phase))
		}
		mm, err := formula.MolarMass(s.Formula)
		if err != nil {
			return fmt.Errorf("hydrochem: salt %s: %w", s.Formula, err)
		}
		s.MolarMass = mm
		for _, st := range s.Ions {
			if st.Count <= 0 {
				return fmt.Errorf("hydrochem: salt %s: ion %s has count %d", s.Formula, st.Ion, st.Count)
			}
			if _, err := c.weigh(st.Ion); err != nil {
				return fmt.Errorf("hydrochem: salt %s: %w", s.Formula, err)
			}
			addIon(st.Ion)
		}
		if _, ok := c.salts[s.Formula]; ok {
			return fmt.Errorf("hydrochem: duplicate salt %s", s.Formula)
		}
		c.salts[s.Formula] = s
		if s.Name != "" {
			c.salts[s.Name] = s
		}
	}
	for f, v := range c.Solubility {
		if _, ok := c.salts[f]; !ok {
			return fmt.Errorf("hydrochem: solubility given for unknown salt %s", f)
		}
		if v <= 0 {
			return fmt.Errorf("hydrochem: solubility of %s must be positive", f)
		}
	}
	for _, a := range c.Acids {
		if len(a.PKa) == 0 {
			return fmt.Errorf("hydrochem: acid %s has no pKa values", a.Name)
		}
		if len(a.States) != len(a.PKa)+1 {
			return fmt.Errorf("hydrochem: acid %s has %d pKa values but %d states",
				a.Name, len(a.PKa), len(a.States))
		}
		for s := range a.States {
			addIon(a.Ion(s))
		}
	}
	for _, m := range c.Metals {
		if m.Charge <= 0 || m.Ksp <= 0 {
			return fmt.Errorf("hydrochem: metal %s must have positive charge and constant", m.Species)
		}
		addIon(m.Ion())
	}
	if len(c.Kw) == 0 {
		return fmt.Errorf("hydrochem: no Kw values")
	}
	return nil
}

// Salt returns the salt with the given formula or name.
func (c *Catalogue) Salt(name string) (*Salt, error) {
	s, ok := c.salts[name]
	if !ok {
		return nil, Errorf("Salt %s not found in the catalogue.", name)
	}
	return s, nil
}

// Known returns whether ion i occurs in any catalogue table.
func (c *Catalogue) Known(i Ion) bool { return c.ions[i] }

// Ions returns all ions that occur in the catalogue in canonical order.
func (c *Catalogue) Ions() []Ion {
	o := make([]Ion, 0, len(c.ions))
	for i := range c.ions {
		o = append(o, i)
	}
	SortIons(o)
	return o
}

var chargeDigits = regexp.MustCompile(`^(.*[A-Za-z)])([0-9]+)([+-])$`)

// ResolveIon converts an ion spelling into a catalogue ion where possible.
// In addition to the spellings accepted by ParseIon, it accepts charge
// digits before a single trailing sign ("Ca2+") when the species is known,
// and bare species names ("SO4", "Na") when exactly one catalogue ion has
// that species. Spellings that do not match any catalogue ion are returned
// as parsed.
func (c *Catalogue) ResolveIon(s string) (Ion, error) {
	ion, marked, err := parseIon(s)
	if err != nil {
		return Ion{}, err
	}
	if c.ions[ion] {
		return ion, nil
	}
	if m := chargeDigits.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		q, _ := strconv.Atoi(m[2])
		if m[3] == "-" {
			q = -q
		}
		alt := Ion{Species: m[1], Charge: q}
		if c.ions[alt] {
			return alt, nil
		}
	}
	if !marked {
		if cands := c.species[ion.Species]; len(cands) == 1 {
			return cands[0], nil
		}
	}
	return ion, nil
}

// ResolveIons converts a mapping keyed by ion spellings into one keyed by
// canonical ions. Values of spellings that resolve to the same ion are
// summed.
func (c *Catalogue) ResolveIons(m map[string]float64) (map[Ion]float64, error) {
	o := make(map[Ion]float64, len(m))
	for k, v := range m {
		i, err := c.ResolveIon(k)
		if err != nil {
			return nil, err
		}
		o[i] += v
	}
	return o, nil
}

// IonMolarMass returns the molar mass of ion i [g/mol], using the species
// symbol as its formula unless an abbreviation is registered.
func (c *Catalogue) IonMolarMass(i Ion) (float64, error) {
	return c.weigh(i)
}

func (c *Catalogue) weigh(i Ion) (float64, error) {
	f := i.Species
	if alias, ok := c.IonFormulas[f]; ok {
		f = alias
	}
	m, err := formula.MolarMass(f)
	if err != nil {
		return 0, fmt.Errorf("hydrochem: weighing ion %s: %w", i, err)
	}
	return m, nil
}

// ToMolar converts ion concentrations in g/L to mol/L.
func (c *Catalogue) ToMolar(grams map[Ion]float64) (map[Ion]float64, error) {
	o := make(map[Ion]float64, len(grams))
	for i, v := range grams {
		mm, err := c.IonMolarMass(i)
		if err != nil {
			return nil, err
		}
		if mm == 0 {
			return nil, Errorf("Ion %s has no mass.", i)
		}
		o[i] = v / mm
	}
	return o, nil
}

// Acid returns the acid that has a protonation state with the species of
// ion i, and the state.
func (c *Catalogue) Acid(i Ion) (*Acid, int, bool) {
	for _, a := range c.Acids {
		if s, ok := a.State(i); ok {
			return a, s, true
		}
	}
	return nil, 0, false
}

// Metal returns the hydroxide-forming metal matching ion i.
func (c *Catalogue) Metal(i Ion) (*Metal, bool) {
	for _, m := range c.Metals {
		if m.Species == i.Species && m.Charge == i.Charge {
			return m, true
		}
	}
	return nil, false
}

// Temperatures returns the temperatures with a tabulated Kw, in
// increasing order.
func (c *Catalogue) Temperatures() []float64 {
	o := make([]float64, 0, len(c.Kw))
	for t := range c.Kw {
		o = append(o, t)
	}
	sort.Float64s(o)
	return o
}
