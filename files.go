/*
 * files.go, part of goNEB.
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

//XYZFrameWrite writes one XYZ frame with the coordinates coords for the atoms in atoms
//to out. The comment is written in the second line, so it must not contain newlines. If extra is
//not nil, its vectors (for instance, the forces on each atom) are written after the coordinates.
func XYZFrameWrite(out io.Writer, coords *v3.Matrix, atoms Atomer, comment string, extra *v3.Matrix) error {
	if atoms.Len() != coords.NVecs() || (extra != nil && extra.NVecs() != coords.NVecs()) {
		return &CError{fmt.Sprintf("Mismatched number of atoms (%d) and vectors", atoms.Len()), []string{"XYZFrameWrite"}}
	}
	if _, err := fmt.Fprintf(out, "%-4d\n%s\n", atoms.Len(), strings.ReplaceAll(comment, "\n", " ")); err != nil {
		return &CError{err.Error(), []string{"fmt.Fprintf", "XYZFrameWrite"}}
	}
	for i := 0; i < atoms.Len(); i++ {
		c := coords.RawRowView(i)
		line := fmt.Sprintf("%-2s  %14.8f %14.8f %14.8f", atoms.Atom(i).Symbol, c[0], c[1], c[2])
		if extra != nil {
			e := extra.RawRowView(i)
			line = fmt.Sprintf("%s %14.8f %14.8f %14.8f", line, e[0], e[1], e[2])
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return &CError{err.Error(), []string{"fmt.Fprintln", "XYZFrameWrite"}}
		}
	}
	return nil
}

//XYZFrameRead reads the next frame from an XYZ stream. It returns the symbols, the
//coordinates, the comment line and, if every atom line has 3 additional numbers, those
//as a second matrix (nil otherwise). It returns io.EOF, unwrapped, if there are no more frames.
func XYZFrameRead(xyz *bufio.Reader) ([]string, *v3.Matrix, string, *v3.Matrix, error) {
	line, err := xyz.ReadString('\n')
	if err == io.EOF && strings.TrimSpace(line) == "" {
		return nil, nil, "", nil, io.EOF
	}
	if err != nil && err != io.EOF {
		return nil, nil, "", nil, &CError{err.Error(), []string{"ReadString", "XYZFrameRead"}}
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || natoms <= 0 {
		return nil, nil, "", nil, &CError{"Ill formatted XYZ frame, bad number of atoms", []string{"XYZFrameRead"}}
	}
	comment, err := xyz.ReadString('\n')
	if err != nil {
		return nil, nil, "", nil, &CError{"Ill formatted XYZ frame, no comment line", []string{"XYZFrameRead"}}
	}
	symbols := make([]string, natoms)
	coords := make([]float64, 3*natoms)
	extra := make([]float64, 3*natoms)
	hasextra := true
	for i := 0; i < natoms; i++ {
		line, err = xyz.ReadString('\n')
		if err != nil && !(err == io.EOF && i == natoms-1) {
			return nil, nil, "", nil, &CError{fmt.Sprintf("Frame ended after %d of %d atoms", i, natoms), []string{"XYZFrameRead"}}
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, nil, "", nil, &CError{fmt.Sprintf("Atom line %d ill formed", i+1), []string{"XYZFrameRead"}}
		}
		symbols[i] = fields[0]
		for j := 0; j < 3; j++ {
			coords[3*i+j], err = strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, nil, "", nil, &CError{err.Error(), []string{"strconv.ParseFloat", "XYZFrameRead"}}
			}
		}
		if len(fields) < 7 {
			hasextra = false
			continue
		}
		for j := 0; j < 3; j++ {
			extra[3*i+j], err = strconv.ParseFloat(fields[j+4], 64)
			if err != nil {
				hasextra = false
			}
		}
	}
	cm, _ := v3.NewMatrix(coords)
	var em *v3.Matrix
	if hasextra {
		em, _ = v3.NewMatrix(extra)
	}
	return symbols, cm, strings.TrimSpace(comment), em, nil
}

//XYZFileWrite writes the structure S in an XYZ file with name xyzname which will
//be created fot that. If the file exist it will be overwriten.
func XYZFileWrite(xyzname string, S *Structure) error {
	out, err := os.Create(xyzname)
	if err != nil {
		return &CError{err.Error(), []string{"os.Create", "XYZFileWrite"}}
	}
	defer out.Close()
	return errDecorate(XYZFrameWrite(out, S.Coords, S, "written with goNEB", nil), "XYZFileWrite")
}
