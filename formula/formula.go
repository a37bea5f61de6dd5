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

// Package formula parses chemical formulas such as "Ca(NO3)2" or
// "Ca(2+)(NO3)2(-)" and calculates their molar masses.
//
// Charge markers ('+' and '-' runs, and parenthesized groups containing only
// digits and signs) are accepted anywhere in a formula and contribute no mass.
package formula

import (
	"fmt"
	"strconv"
	"unicode"
)

// MaxMass is the largest molar mass [g/mol] a formula is allowed to have.
// Larger accumulated masses indicate a malformed formula.
const MaxMass = 100000.

// maxCount bounds element counts and group multipliers. Every element
// weighs at least 1 g/mol, so a larger count always exceeds MaxMass.
const maxCount = int(MaxMass)

// Term is a single element occurrence in a formula, with its multiplicity
// after group multipliers have been applied.
type Term struct {
	Element string
	Count   int
}

// InvalidFormulaError is returned when a formula contains characters
// outside of [A-Za-z0-9()+-] or cannot otherwise be parsed.
type InvalidFormulaError struct {
	Formula string
	Reason  string
}

func (e *InvalidFormulaError) Error() string {
	return fmt.Sprintf("formula: invalid formula %q: %s", e.Formula, e.Reason)
}

// UnknownElementError is returned when a formula contains an element
// symbol that is not in the atomic mass table.
type UnknownElementError struct {
	Formula string
	Element string
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("formula: unknown element %q in formula %q", e.Element, e.Formula)
}

// Parse splits formula f into an ordered list of element terms. Group
// multipliers are applied to the terms inside the group, and charge markers
// are dropped.
func Parse(f string) ([]Term, error) {
	for _, r := range f {
		if !validRune(r) {
			return nil, &InvalidFormulaError{Formula: f, Reason: fmt.Sprintf("character %q is not allowed", r)}
		}
	}
	p := parser{f: []rune(f)}
	terms, err := p.sequence(0)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.f) {
		return nil, &InvalidFormulaError{Formula: f, Reason: "unbalanced ')'"}
	}
	return terms, nil
}

// MolarMass returns the molar mass of formula f in g/mol.
func MolarMass(f string) (float64, error) {
	terms, err := Parse(f)
	if err != nil {
		return 0, err
	}
	var m float64
	for _, t := range terms {
		am, ok := atomicMass[t.Element]
		if !ok {
			return 0, &UnknownElementError{Formula: f, Element: t.Element}
		}
		m += am * float64(t.Count)
		if m > MaxMass || m < 0 {
			return 0, &InvalidFormulaError{Formula: f, Reason: fmt.Sprintf("molar mass exceeds %g g/mol", MaxMass)}
		}
	}
	return m, nil
}

// AtomicMass returns the standard atomic mass [g/mol] of element symbol e.
func AtomicMass(e string) (float64, bool) {
	m, ok := atomicMass[e]
	return m, ok
}

func validRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '(' || r == ')' || r == '+' || r == '-':
		return true
	}
	return false
}

type parser struct {
	f   []rune
	pos int
}

// sequence parses terms until the end of the formula or a closing
// parenthesis at the given depth.
func (p *parser) sequence(depth int) ([]Term, error) {
	var terms []Term
	for p.pos < len(p.f) {
		r := p.f[p.pos]
		switch {
		case unicode.IsUpper(r):
			sym := string(r)
			p.pos++
			if p.pos < len(p.f) && unicode.IsLower(p.f[p.pos]) {
				sym += string(p.f[p.pos])
				p.pos++
			}
			n, err := p.count()
			if err != nil {
				return nil, err
			}
			if _, ok := atomicMass[sym]; !ok {
				return nil, &UnknownElementError{Formula: string(p.f), Element: sym}
			}
			terms = append(terms, Term{Element: sym, Count: n})
		case r == '(':
			p.pos++
			inner, err := p.sequence(depth + 1)
			if err != nil {
				return nil, err
			}
			if p.pos >= len(p.f) || p.f[p.pos] != ')' {
				return nil, &InvalidFormulaError{Formula: string(p.f), Reason: "unbalanced '('"}
			}
			p.pos++
			n, err := p.count()
			if err != nil {
				return nil, err
			}
			for _, t := range inner {
				if n > 0 && t.Count > maxCount/n {
					return nil, &InvalidFormulaError{Formula: string(p.f), Reason: fmt.Sprintf("count of %s exceeds %d", t.Element, maxCount)}
				}
				terms = append(terms, Term{Element: t.Element, Count: t.Count * n})
			}
		case r == ')':
			// The caller checks that the parenthesis was opened.
			return terms, nil
		case r == '+' || r == '-' || unicode.IsDigit(r):
			// Charge markers and free-standing charge digits weigh nothing.
			p.pos++
		default:
			return nil, &InvalidFormulaError{Formula: string(p.f), Reason: fmt.Sprintf("unexpected %q at position %d", r, p.pos)}
		}
	}
	return terms, nil
}

// count reads an optional integer multiplier, defaulting to 1.
func (p *parser) count() (int, error) {
	start := p.pos
	for p.pos < len(p.f) && unicode.IsDigit(p.f[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return 1, nil
	}
	n, err := strconv.Atoi(string(p.f[start:p.pos]))
	if err != nil {
		return 0, &InvalidFormulaError{Formula: string(p.f), Reason: err.Error()}
	}
	if n > maxCount {
		return 0, &InvalidFormulaError{Formula: string(p.f), Reason: fmt.Sprintf("count %d exceeds %d", n, maxCount)}
	}
	return n, nil
}
