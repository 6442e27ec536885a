/*
 * handy.go, part of goNEB.
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
	"math"

	v3 "github.com/rmera/goneb/v3"
)

//MaxForce returns the largest norm of the force on any atom of atoms, considering only the
//cartesian components that are allowed to move. This is the quantity compared with
//the fmax convergence criterion. NaN forces give +Inf.
func MaxForce(forces *v3.Matrix, atoms Atomer) float64 {
	max := 0.0
	for i := 0; i < atoms.Len(); i++ {
		mv := atoms.Atom(i).Move
		f := forces.RawRowView(i)
		sq := 0.0
		for j := 0; j < 3; j++ {
			if mv[j] {
				sq += f[j] * f[j]
			}
		}
		if math.IsNaN(sq) {
			return math.Inf(1)
		}
		if n := math.Sqrt(sq); n > max {
			max = n
		}
	}
	return max
}

//MaskForces sets to zero, in place, the force components for the fixed
//components of atoms.
func MaskForces(forces *v3.Matrix, atoms Atomer) {
	for i := 0; i < atoms.Len(); i++ {
		mv := atoms.Atom(i).Move
		for j := 0; j < 3; j++ {
			if !mv[j] {
				forces.Set(i, j, 0)
			}
		}
	}
}

//isIn is a helper, returns true if test is in container, false otherwise.
func isInString(container []string, test string) bool {
	for _, i := range container {
		if test == i {
			return true
		}
	}
	return false
}

//MissingElements returns the elements in elements that are not keys of files.
func MissingElements(elements []string, files map[string]string) []string {
	keys := make([]string, 0, len(files))
	for k, v := range files {
		if v != "" {
			keys = append(keys, k)
		}
	}
	ret := make([]string, 0)
	for _, e := range elements {
		if !isInString(keys, e) {
			ret = append(ret, e)
		}
	}
	return ret
}
