/*
 * writer.go, part of goNEB.
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
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	chem "github.com/rmera/goneb"
	v3 "github.com/rmera/goneb/v3"
)

//Writer appends frames to a trajectory file.
type Writer struct {
	f         *os.File
	z         *zstd.Encoder
	h         *bufio.Writer
	filename  string
	writeable bool
	frames    int
}

//NewWriter creates (or truncates) the trajectory file name.
func NewWriter(name string) (*Writer, error) {
	W := &Writer{filename: name}
	var err error
	W.f, err = os.Create(name)
	if err != nil {
		return nil, &Error{err.Error(), name, []string{"os.Create", "NewWriter"}, true}
	}
	var out io.Writer = W.f
	if Compressed(name) {
		W.z, err = zstd.NewWriter(W.f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			W.f.Close()
			return nil, &Error{"can't start compression " + err.Error(), name, []string{"zstd.NewWriter", "NewWriter"}, true}
		}
		out = W.z
	}
	W.h = bufio.NewWriter(out)
	W.writeable = true
	return W, nil
}

//Frames returns the number of frames written so far.
func (W *Writer) Frames() int {
	return W.frames
}

//Write appends a frame for S with the given energy and forces (which can be nil).
//info contains extra key=value pairs for the comment line.
func (W *Writer) Write(S *chem.Structure, energy float64, forces *v3.Matrix, info map[string]string) error {
	if !W.writeable {
		return &Error{"write on a closed trajectory", W.filename, []string{"Write"}, true}
	}
	if err := W.writeFrame(S, energy, forces, info); err != nil {
		return err
	}
	W.frames++
	//a frame should be on disk once Write returns, so an interrupted run keeps its trajectory.
	if err := W.h.Flush(); err != nil {
		return &Error{err.Error(), W.filename, []string{"Flush", "Write"}, true}
	}
	if W.z != nil {
		if err := W.z.Flush(); err != nil {
			return &Error{err.Error(), W.filename, []string{"zstd.Flush", "Write"}, true}
		}
	}
	return nil
}

func (W *Writer) writeFrame(S *chem.Structure, energy float64, forces *v3.Matrix, info map[string]string) error {
	vecs := S.Cell.Vectors()
	lat := make([]string, 9)
	for i, v := range vecs {
		lat[i] = strconv.FormatFloat(v, 'f', 8, 64)
	}
	props := "species:S:1:pos:R:3"
	if forces != nil {
		props += ":forces:R:3"
	}
	comment := fmt.Sprintf("Lattice=\"%s\" Properties=%s energy=%.8f", strings.Join(lat, " "), props, energy)
	if forces != nil {
		comment += fmt.Sprintf(" fmax=%.6f", chem.MaxForce(forces, S))
	}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := info[k]
		if strings.ContainsAny(v, " \t") {
			v = strconv.Quote(v)
		}
		comment += fmt.Sprintf(" %s=%s", k, v)
	}
	comment += " pbc=\"T T T\""
	err := chem.XYZFrameWrite(W.h, S.Coords, S, comment, forces)
	if err != nil {
		if e, ok := err.(chem.Error); ok {
			e.Decorate("Write")
		}
		return err
	}
	return nil
}

//Close flushes and closes the file. The writer can't be used after this call.
func (W *Writer) Close() error {
	if W == nil || !W.writeable {
		return nil
	}
	W.writeable = false
	var err error
	if e := W.h.Flush(); e != nil {
		err = e
	}
	if W.z != nil {
		if e := W.z.Close(); e != nil && err == nil {
			err = e
		}
	}
	if e := W.f.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return &Error{err.Error(), W.filename, []string{"Close"}, true}
	}
	return nil
}
