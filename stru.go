/*
 * stru.go, part of goNEB.
 *
 * Copyright 2026 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package chem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/rmera/goneb/v3"
)

//The section keywords of a STRU file. Only some of them are used by goNEB, the rest
//are recognized so their content is skipped.
var struSections = map[string]bool{
	"ATOMIC_SPECIES":       true,
	"NUMERICAL_ORBITAL":    true,
	"LATTICE_CONSTANT":     true,
	"LATTICE_VECTORS":      true,
	"LATTICE_PARAMETERS":   true,
	"ATOMIC_POSITIONS":     true,
	"NUMERICAL_DESCRIPTOR": true,
	"ABFS_ORBITAL":         true,
	"PAW_FILES":            true,
}

type struLine struct {
	n      int
	fields []string
}

type struSpecies struct {
	label string
	mass  float64
	pp    string
	orb   string
}

func struErr(name string, line int, format string, a ...interface{}) error {
	return &CError{fmt.Sprintf("%s:%d: %s", name, line, fmt.Sprintf(format, a...)), []string{"struRead"}}
}

//STRURead reads an ABACUS STRU file and returns the structure in it, with coordinates
//in A. Fixed cartesian components (move flags equal to 0) are kept in the Move field of each atom.
func STRURead(name string) (*Structure, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, &CError{err.Error(), []string{"os.Open", "STRURead"}}
	}
	defer f.Close()
	S, err := struRead(f, name)
	return S, errDecorate(err, "STRURead")
}

//STRUReadFrom reads a structure in the STRU format from r.
func STRUReadFrom(r io.Reader) (*Structure, error) {
	S, err := struRead(r, "STRU")
	return S, errDecorate(err, "STRUReadFrom")
}

func struRead(r io.Reader, name string) (*Structure, error) {
	sections := make(map[string][]struLine)
	var current string
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if struSections[fields[0]] {
			current = fields[0]
			if _, ok := sections[current]; ok {
				return nil, struErr(name, n, "section %s appears twice", current)
			}
			sections[current] = make([]struLine, 0, 8)
			continue
		}
		if current == "" {
			return nil, struErr(name, n, "data outside of any section")
		}
		sections[current] = append(sections[current], struLine{n, fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, &CError{err.Error(), []string{"bufio.Scanner", "struRead"}}
	}
	species, err := struReadSpecies(sections, name)
	if err != nil {
		return nil, err
	}
	cell, lc, err := struReadCell(sections, name)
	if err != nil {
		return nil, err
	}
	return struReadPositions(sections["ATOMIC_POSITIONS"], species, cell, lc, name)
}

func struReadSpecies(sections map[string][]struLine, name string) ([]*struSpecies, error) {
	species := make([]*struSpecies, 0, len(sections["ATOMIC_SPECIES"]))
	for _, l := range sections["ATOMIC_SPECIES"] {
		if len(l.fields) < 2 {
			return nil, struErr(name, l.n, "species lines need at least a label and a mass")
		}
		mass, err := strconv.ParseFloat(l.fields[1], 64)
		if err != nil {
			return nil, struErr(name, l.n, "can't parse mass %q", l.fields[1])
		}
		sp := &struSpecies{label: l.fields[0], mass: mass}
		if len(l.fields) >= 3 {
			sp.pp = l.fields[2]
		}
		species = append(species, sp)
	}
	for i, l := range sections["NUMERICAL_ORBITAL"] {
		if i < len(species) {
			species[i].orb = l.fields[0]
		}
	}
	return species, nil
}

//struReadCell returns the cell in A and the lattice constant in Bohr.
func struReadCell(sections map[string][]struLine, name string) (*Cell, float64, error) {
	if _, ok := sections["LATTICE_PARAMETERS"]; ok {
		return nil, 0, struErr(name, 0, "LATTICE_PARAMETERS (latname) cells are not supported, give LATTICE_VECTORS")
	}
	lcl, ok := sections["LATTICE_CONSTANT"]
	if !ok || len(lcl) != 1 {
		return nil, 0, struErr(name, 0, "LATTICE_CONSTANT missing or ill-formed")
	}
	lc, err := strconv.ParseFloat(lcl[0].fields[0], 64)
	if err != nil {
		return nil, 0, struErr(name, lcl[0].n, "can't parse lattice constant %q", lcl[0].fields[0])
	}
	vl := sections["LATTICE_VECTORS"]
	if len(vl) != 3 {
		return nil, 0, struErr(name, 0, "LATTICE_VECTORS must contain 3 vectors, found %d", len(vl))
	}
	vecs := make([]float64, 0, 9)
	for _, l := range vl {
		if len(l.fields) < 3 {
			return nil, 0, struErr(name, l.n, "lattice vectors need 3 components")
		}
		for _, f := range l.fields[:3] {
			c, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, 0, struErr(name, l.n, "can't parse lattice vector component %q", f)
			}
			vecs = append(vecs, c*lc*Bohr)
		}
	}
	cell, err := NewCell(vecs)
	if err != nil {
		return nil, 0, struErr(name, vl[0].n, "%s", err.Error())
	}
	return cell, lc, nil
}

func struReadPositions(pos []struLine, species []*struSpecies, cell *Cell, lc float64, name string) (*Structure, error) {
	if len(pos) < 1 {
		return nil, struErr(name, 0, "no ATOMIC_POSITIONS")
	}
	var scale float64
	direct := false
	switch pos[0].fields[0] {
	case "Direct":
		direct = true
	case "Cartesian":
		scale = lc * Bohr
	case "Cartesian_angstrom":
		scale = 1
	case "Cartesian_au":
		scale = Bohr
	default:
		return nil, struErr(name, pos[0].n, "unsupported coordinate type %s", pos[0].fields[0])
	}
	atoms := make([]*Atom, 0, len(pos))
	coords := make([]float64, 0, 3*len(pos))
	for i := 1; i < len(pos); {
		if i+2 >= len(pos) {
			return nil, struErr(name, pos[i].n, "incomplete species block")
		}
		label := pos[i].fields[0]
		magmom, err := strconv.ParseFloat(pos[i+1].fields[0], 64)
		if err != nil {
			return nil, struErr(name, pos[i+1].n, "can't parse magnetization %q", pos[i+1].fields[0])
		}
		count, err := strconv.Atoi(pos[i+2].fields[0])
		if err != nil || count < 0 {
			return nil, struErr(name, pos[i+2].n, "can't parse number of atoms %q", pos[i+2].fields[0])
		}
		i += 3
		var sp *struSpecies
		for _, v := range species {
			if v.label == label {
				sp = v
			}
		}
		if sp == nil && len(species) > 0 {
			return nil, struErr(name, pos[i-3].n, "species %s not in ATOMIC_SPECIES", label)
		}
		symbol := symbolFromLabel(label)
		if symbol == "" {
			return nil, struErr(name, pos[i-3].n, "can't determine the element for species %s", label)
		}
		mass := symbolMass[symbol]
		if sp != nil && sp.mass > 0 {
			mass = sp.mass
		}
		for k := 0; k < count; k++ {
			if i >= len(pos) {
				return nil, struErr(name, pos[len(pos)-1].n, "expected %d atoms for species %s, found %d", count, label, k)
			}
			l := pos[i]
			i++
			if len(l.fields) < 3 {
				return nil, struErr(name, l.n, "atom lines need 3 coordinates")
			}
			for _, f := range l.fields[:3] {
				c, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, struErr(name, l.n, "can't parse coordinate %q", f)
				}
				coords = append(coords, c)
			}
			move, err := struMoveFlags(l.fields[3:])
			if err != nil {
				return nil, struErr(name, l.n, "%s", err.Error())
			}
			atoms = append(atoms, &Atom{Name: label, Symbol: symbol, Mass: mass, Magmom: magmom, Move: move})
		}
	}
	if len(atoms) == 0 {
		return nil, struErr(name, pos[0].n, "no atoms in ATOMIC_POSITIONS")
	}
	cm, _ := v3.NewMatrix(coords)
	if direct {
		cm = cell.Frac2Cart(cm)
	} else {
		cm.Scale(scale, cm.Dense)
	}
	top, err := NewTopology(atoms)
	if err != nil {
		return nil, err
	}
	return NewStructure(top, cm, cell)
}

//struMoveFlags parses whatever follows the coordinates in an atom line.
//Only the move flags are kept.
func struMoveFlags(tokens []string) ([3]bool, error) {
	move := [3]bool{true, true, true}
	flags := func(t []string) error {
		if len(t) < 3 {
			return fmt.Errorf("move flags need 3 values")
		}
		for k := 0; k < 3; k++ {
			switch t[k] {
			case "0":
				move[k] = false
			case "1":
				move[k] = true
			default:
				return fmt.Errorf("move flags must be 0 or 1, got %q", t[k])
			}
		}
		return nil
	}
	//skipNumbers returns the index after up to max numeric tokens starting at j
	skipNumbers := func(j, max int) int {
		for c := 0; c < max && j < len(tokens); c++ {
			if _, err := strconv.ParseFloat(tokens[j], 64); err != nil {
				break
			}
			j++
		}
		return j
	}
	for j := 0; j < len(tokens); {
		t := tokens[j]
		switch t {
		case "m":
			if j+4 > len(tokens) {
				return move, fmt.Errorf("keyword m needs 3 flags")
			}
			if err := flags(tokens[j+1:]); err != nil {
				return move, err
			}
			j += 4
		case "v", "vel", "velocity":
			j = skipNumbers(j+1, 3)
		case "mag", "magmom", "lambda", "sc":
			j = skipNumbers(j+1, 3)
		case "angle1", "angle2":
			j = skipNumbers(j+1, 1)
		default:
			if j != 0 {
				return move, fmt.Errorf("unexpected token %q in atom line", t)
			}
			if err := flags(tokens); err != nil {
				return move, err
			}
			j += 3
		}
	}
	return move, nil
}

func lookupFile(files map[string]string, at *Atom) string {
	if f, ok := files[at.Label()]; ok {
		return f
	}
	return files[at.Symbol]
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

//STRUWrite writes S to w in the STRU format. pp maps species labels or element symbols
//to pseudopotential files, and orb, which can be nil, to numerical orbital files.
//The atoms are written grouped by species, in order of first appearance. The returned slice
//contains, for each written atom, its index in S, so quantities read back from ABACUS
//can be put in the order of S.
func STRUWrite(w io.Writer, S *Structure, pp, orb map[string]string) ([]int, error) {
	if err := S.Corrupted(); err != nil {
		return nil, errDecorate(err, "STRUWrite")
	}
	labels := make([]string, 0, 4)
	groups := make(map[string][]int)
	for i, at := range S.Atoms {
		l := at.Label()
		if _, ok := groups[l]; !ok {
			labels = append(labels, l)
		}
		groups[l] = append(groups[l], i)
	}
	out := bufio.NewWriter(w)
	fmt.Fprintln(out, "ATOMIC_SPECIES")
	for _, l := range labels {
		at := S.Atoms[groups[l][0]]
		p := lookupFile(pp, at)
		if p == "" {
			return nil, &CError{fmt.Sprintf("No pseudopotential for species %s", l), []string{"STRUWrite"}}
		}
		fmt.Fprintf(out, "%-6s %10.4f %s\n", l, at.Mass, p)
	}
	if len(orb) > 0 {
		fmt.Fprintln(out, "\nNUMERICAL_ORBITAL")
		for _, l := range labels {
			o := lookupFile(orb, S.Atoms[groups[l][0]])
			if o == "" {
				return nil, &CError{fmt.Sprintf("No numerical orbital for species %s", l), []string{"STRUWrite"}}
			}
			fmt.Fprintln(out, o)
		}
	}
	//With this lattice constant the vectors and cartesian coordinates are in A.
	fmt.Fprintf(out, "\nLATTICE_CONSTANT\n%.12f\n", 1/Bohr)
	fmt.Fprintln(out, "\nLATTICE_VECTORS")
	for i := 0; i < 3; i++ {
		v := S.Cell.Vec(i)
		fmt.Fprintf(out, "%18.10f %18.10f %18.10f\n", v[0], v[1], v[2])
	}
	fmt.Fprintln(out, "\nATOMIC_POSITIONS\nCartesian")
	order := make([]int, 0, S.Len())
	for _, l := range labels {
		idx := groups[l]
		fmt.Fprintf(out, "\n%s\n%.4f\n%d\n", l, S.Atoms[idx[0]].Magmom, len(idx))
		for _, i := range idx {
			c := S.Coords.RawRowView(i)
			mv := S.Atoms[i].Move
			fmt.Fprintf(out, "%18.10f %18.10f %18.10f %d %d %d\n", c[0], c[1], c[2], b2i(mv[0]), b2i(mv[1]), b2i(mv[2]))
			order = append(order, i)
		}
	}
	return order, out.Flush()
}

//STRUFileWrite writes S to a STRU file with the given name, see STRUWrite.
func STRUFileWrite(name string, S *Structure, pp, orb map[string]string) ([]int, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, &CError{err.Error(), []string{"os.Create", "STRUFileWrite"}}
	}
	defer f.Close()
	order, err := STRUWrite(f, S, pp, orb)
	return order, errDecorate(err, "STRUFileWrite")
}
