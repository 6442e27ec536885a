/*
 * reader.go, part of goNEB.
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
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	chem "github.com/rmera/goneb"
)

//Reader reads frames from a trajectory file.
type Reader struct {
	f        *os.File
	z        *zstd.Decoder
	h        *bufio.Reader
	filename string
	readable bool
}

//Open opens the trajectory name for reading.
func Open(name string) (*Reader, error) {
	R := &Reader{filename: name}
	var err error
	R.f, err = os.Open(name)
	if err != nil {
		return nil, &Error{err.Error(), name, []string{"os.Open", "Open"}, true}
	}
	var in io.Reader = R.f
	if Compressed(name) {
		R.z, err = zstd.NewReader(bufio.NewReader(R.f))
		if err != nil {
			R.f.Close()
			return nil, &Error{"can't start decompression " + err.Error(), name, []string{"zstd.NewReader", "Open"}, true}
		}
		in = R.z
	}
	R.h = bufio.NewReader(in)
	R.readable = true
	return R, nil
}

//Readable returns true if the handle is readable (if it is possible to call Next on it)
func (R *Reader) Readable() bool {
	return R.readable
}

//Next returns the next frame. It returns io.EOF, unwrapped, when there are
//no more frames.
func (R *Reader) Next() (*Frame, error) {
	if !R.readable {
		return nil, io.EOF
	}
	syms, coords, comment, forces, err := chem.XYZFrameRead(R.h)
	if err == io.EOF {
		R.readable = false
		return nil, io.EOF
	}
	if err != nil {
		return nil, &Error{err.Error(), R.filename, []string{"chem.XYZFrameRead", "Next"}, true}
	}
	F := &Frame{Symbols: syms, Coords: coords, Forces: forces, Info: parseComment(comment)}
	if !strings.Contains(F.Info["Properties"], "forces") {
		F.Forces = nil
	}
	if e, ok := F.Info["energy"]; ok {
		F.Energy, err = strconv.ParseFloat(e, 64)
		if err != nil {
			return nil, &Error{"bad energy " + e, R.filename, []string{"Next"}, true}
		}
	}
	if lat, ok := F.Info["Lattice"]; ok {
		fields := strings.Fields(lat)
		vecs := make([]float64, len(fields))
		for i, v := range fields {
			vecs[i], err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, &Error{"bad lattice " + lat, R.filename, []string{"Next"}, true}
			}
		}
		F.Cell, err = chem.NewCell(vecs)
		if err != nil {
			return nil, &Error{err.Error(), R.filename, []string{"chem.NewCell", "Next"}, true}
		}
	}
	return F, nil
}

//Close closes the file. The reader can't be used after this call.
func (R *Reader) Close() {
	if R == nil {
		return
	}
	if R.z != nil {
		R.z.Close()
	}
	R.f.Close()
	R.readable = false
}

//ReadAll returns all the frames in the trajectory name.
func ReadAll(name string) ([]*Frame, error) {
	R, err := Open(name)
	if err != nil {
		return nil, err
	}
	defer R.Close()
	ret := make([]*Frame, 0, 16)
	for {
		F, err := R.Next()
		if err == io.EOF {
			return ret, nil
		}
		if err != nil {
			return ret, err
		}
		ret = append(ret, F)
	}
}

//parseComment reads key=value pairs, where values can be quoted.
func parseComment(comment string) map[string]string {
	ret := make(map[string]string)
	s := strings.TrimSpace(comment)
	for len(s) > 0 {
		eq := strings.IndexAny(s, "= ")
		if eq < 0 {
			ret[s] = ""
			break
		}
		key := s[:eq]
		if s[eq] == ' ' {
			if key != "" {
				ret[key] = ""
			}
			s = strings.TrimSpace(s[eq+1:])
			continue
		}
		s = s[eq+1:]
		var val string
		if strings.HasPrefix(s, "\"") {
			end := strings.Index(s[1:], "\"")
			if end < 0 {
				val, s = s[1:], ""
			} else {
				val, s = s[1:end+1], s[end+2:]
			}
		} else {
			end := strings.Index(s, " ")
			if end < 0 {
				val, s = s, ""
			} else {
				val, s = s[:end], s[end:]
			}
		}
		ret[key] = val
		s = strings.TrimSpace(s)
	}
	return ret
}
