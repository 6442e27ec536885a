/*
 * traj.go, part of goNEB.
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

package traj

import (
	"fmt"
	"strings"

	chem "github.com/rmera/goneb"
	v3 "github.com/rmera/goneb/v3"
)

//Frame is one snapshot of a trajectory.
type Frame struct {
	Symbols []string
	Coords  *v3.Matrix
	Forces  *v3.Matrix //nil if the frame had no forces
	Cell    *chem.Cell
	Energy  float64
	//Info contains every key=value pair in the comment line, including the energy.
	Info map[string]string
}

//Structure returns the frame as a structure. If top is not nil, it is used (copied) as the
//topology of the structure, so move flags and labels are kept. Otherwise, all atoms can move.
func (F *Frame) Structure(top *chem.Topology) (*chem.Structure, error) {
	if F.Cell == nil {
		return nil, &Error{"frame without lattice", "", []string{"Structure"}, true}
	}
	if top == nil {
		ats := make([]*chem.Atom, len(F.Symbols))
		for i, s := range F.Symbols {
			m, _ := chem.AtomicMass(s)
			ats[i] = &chem.Atom{Symbol: s, Mass: m, Move: [3]bool{true, true, true}}
		}
		var err error
		top, err = chem.NewTopology(ats)
		if err != nil {
			return nil, err
		}
	} else {
		if top.Len() != len(F.Symbols) {
			return nil, &Error{fmt.Sprintf("topology has %d atoms, frame %d", top.Len(), len(F.Symbols)), "", []string{"Structure"}, true}
		}
		for i, s := range F.Symbols {
			if top.Atom(i).Symbol != s {
				return nil, &Error{fmt.Sprintf("atom %d is %s in the topology and %s in the frame", i+1, top.Atom(i).Symbol, s), "", []string{"Structure"}, true}
			}
		}
		top = top.CopyAtoms()
	}
	c := *F.Cell
	return chem.NewStructure(top, F.Coords.Copy(), &c)
}

//Error is the error type for trajectories.
type Error struct {
	message  string
	filename string //the file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err *Error) Error() string {
	if err.filename == "" {
		return "trajectory error: " + err.message
	}
	return fmt.Sprintf("trajectory %s error: %s", err.filename, err.message)
}

//Decorate Adds new information to the error
func (err *Error) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

//FileName returns the file to which the failing trajectory was associated
func (err *Error) FileName() string { return err.filename }

//Critical returns true if the error is critical, false otherwise
func (err *Error) Critical() bool { return err.critical }

//Compressed returns true if files with the given name are zstd-compressed.
func Compressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zst")
}
