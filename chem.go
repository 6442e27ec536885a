/*
 * chem.go, part of goNEB.
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

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package chem

import (
	"fmt"
	"sort"

	v3 "github.com/rmera/goneb/v3"
)

//Atom contains the information for one atom in a structure, except for the coordinates,
//which are kept in a v3.Matrix.
type Atom struct {
	Name   string //the species label in the STRU file, which may differ from the symbol (i.e. "Ir_surf")
	Id     int
	Symbol string
	Mass   float64
	Magmom float64 //species-level starting magnetization
	//Move is true for each cartesian component that the optimizers are allowed to change.
	Move [3]bool
}

//Copy returns a copy of the Atom object.
func (A *Atom) Copy() *Atom {
	if A == nil {
		panic("Attempted to copy a nil atom")
	}
	ret := *A
	return &ret
}

//Fixed returns true if none of the cartesian components of the atom can move.
func (A *Atom) Fixed() bool {
	return !A.Move[0] && !A.Move[1] && !A.Move[2]
}

//Label returns the species label for the atom, or its symbol if there is no label.
func (A *Atom) Label() string {
	if A.Name != "" {
		return A.Name
	}
	return A.Symbol
}

/*****Topology type***/

//Topology contains the information about a structure which is not expected to change during
//an optimization (i.e. everything except for coordinates).
type Topology struct {
	Atoms []*Atom
}

//NewTopology returns a topology with the given atoms. It sets the Id of each
//atom to its 1-based position.
func NewTopology(ats []*Atom) (*Topology, error) {
	if ats == nil {
		return nil, &CError{"Supplied a nil atom slice", []string{"NewTopology"}}
	}
	for i, v := range ats {
		if v == nil {
			return nil, &CError{fmt.Sprintf("Atom %d is nil", i), []string{"NewTopology"}}
		}
		v.Id = i + 1
	}
	return &Topology{Atoms: ats}, nil
}

//Atom returns the Atom corresponding to the index i
//of the Atom slice in the Topology. Panics if
//out of range.
func (T *Topology) Atom(i int) *Atom {
	if i >= T.Len() {
		panic("Topology: Requested Atom out of bounds")
	}
	return T.Atoms[i]
}

//Len returns the number of atoms in the topology.
func (T *Topology) Len() int {
	return len(T.Atoms)
}

//CopyAtoms returns a deep copy of the topology
func (T *Topology) CopyAtoms() *Topology {
	top := new(Topology)
	top.Atoms = make([]*Atom, T.Len())
	for key, val := range T.Atoms {
		top.Atoms[key] = val.Copy()
	}
	return top
}

//Elements returns the sorted list of distinct chemical symbols in the topology.
func (T *Topology) Elements() []string {
	seen := make(map[string]bool)
	ret := make([]string, 0, 4)
	for _, v := range T.Atoms {
		if !seen[v.Symbol] {
			seen[v.Symbol] = true
			ret = append(ret, v.Symbol)
		}
	}
	sort.Strings(ret)
	return ret
}

//MoveMask returns a flat slice with 3 elements per atom, 1 for the components
//that can move and 0 for the fixed ones.
func (T *Topology) MoveMask() []float64 {
	ret := make([]float64, 3*T.Len())
	for i, v := range T.Atoms {
		for j := 0; j < 3; j++ {
			if v.Move[j] {
				ret[3*i+j] = 1
			}
		}
	}
	return ret
}

/**Type Structure**/

//Structure is a periodic set of atoms in one geometry. It is what the DFT engine
//calculates and what the optimizers move.
type Structure struct {
	*Topology
	Coords *v3.Matrix //cartesian, in A
	Cell   *Cell
}

//NewStructure puts together a topology, coordinates and cell. It returns error if
//any of them is nil or if the number of atoms and coordinates don't match.
func NewStructure(top *Topology, coords *v3.Matrix, cell *Cell) (*Structure, error) {
	S := &Structure{Topology: top, Coords: coords, Cell: cell}
	if err := S.Corrupted(); err != nil {
		err.(Error).Decorate("NewStructure")
		return nil, err
	}
	return S, nil
}

//Corrupted checks whether the structure is usable, returns an error if not.
func (S *Structure) Corrupted() error {
	if S.Topology == nil || S.Coords == nil || S.Cell == nil {
		return &CError{"Structure with nil topology, coordinates or cell", []string{"Corrupted"}}
	}
	if S.Len() != S.Coords.NVecs() {
		return &CError{fmt.Sprintf("Mismatched number of atoms (%d) and coordinates (%d)", S.Len(), S.Coords.NVecs()), []string{"Corrupted"}}
	}
	return nil
}

//Copy returns a deep copy of the structure.
func (S *Structure) Copy() *Structure {
	ret := new(Structure)
	ret.Topology = S.CopyAtoms()
	ret.Coords = S.Coords.Copy()
	c := *S.Cell
	ret.Cell = &c
	return ret
}

//SameAtoms returns an error if S and O don't have the same atoms
//in the same order, which is required for two NEB endpoints.
func (S *Structure) SameAtoms(O *Structure) error {
	if S.Len() != O.Len() {
		return &CError{fmt.Sprintf("Different number of atoms: %d vs %d", S.Len(), O.Len()), []string{"SameAtoms"}}
	}
	for i := range S.Atoms {
		if S.Atoms[i].Symbol != O.Atoms[i].Symbol {
			return &CError{fmt.Sprintf("Atom %d is %s in one structure and %s in the other", i+1, S.Atoms[i].Symbol, O.Atoms[i].Symbol), []string{"SameAtoms"}}
		}
	}
	return nil
}
