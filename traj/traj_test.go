/*
 * traj_test.go, part of goNEB.
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
	"io"
	"path/filepath"
	"testing"

	chem "github.com/rmera/goneb"
	v3 "github.com/rmera/goneb/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTestStructure(t *testing.T) *chem.Structure {
	S, err := chem.STRURead("../test/init.STRU")
	require.NoError(t, err)
	return S
}

func TestWriteRead(t *testing.T) {
	for _, name := range []string{"opt.traj", "opt.traj.zst"} {
		S := readTestStructure(t)
		file := filepath.Join(t.TempDir(), name)
		W, err := NewWriter(file)
		require.NoError(t, err)
		forces := v3.Zeros(S.Len())
		forces.Set(2, 2, -0.3)
		forces.Set(0, 0, 5) //fixed atom, doesn't count for fmax
		for i := 0; i < 3; i++ {
			S.Coords.Set(4, 2, S.Coords.At(4, 2)+0.1)
			require.NoError(t, W.Write(S, -100-float64(i), forces, map[string]string{"step": "x", "note": "two words"}))
		}
		assert.Equal(t, 3, W.Frames())
		require.NoError(t, W.Close())
		assert.Error(t, W.Write(S, 0, nil, nil))

		frames, err := ReadAll(file)
		require.NoError(t, err)
		require.Len(t, frames, 3)
		last := frames[2]
		assert.InDelta(t, -102, last.Energy, 1e-9)
		assert.Equal(t, "two words", last.Info["note"])
		assert.Equal(t, "0.300000", last.Info["fmax"])
		assert.InDelta(t, S.Coords.At(4, 2), last.Coords.At(4, 2), 1e-7)
		require.NotNil(t, last.Forces)
		assert.InDelta(t, -0.3, last.Forces.At(2, 2), 1e-9)
		require.NotNil(t, last.Cell)
		assert.InDelta(t, 20.0, last.Cell.Vec(2)[2], 1e-7)

		S2, err := last.Structure(S.Topology)
		require.NoError(t, err)
		assert.Equal(t, S.Atom(0).Move, S2.Atom(0).Move)
		S3, err := last.Structure(nil)
		require.NoError(t, err)
		assert.False(t, S3.Atom(0).Fixed())
		assert.Equal(t, "Ir", S3.Atom(0).Symbol)
	}
}

func TestNoForces(t *testing.T) {
	S := readTestStructure(t)
	file := filepath.Join(t.TempDir(), "band.traj")
	W, err := NewWriter(file)
	require.NoError(t, err)
	require.NoError(t, W.Write(S, 1.5, nil, nil))
	require.NoError(t, W.Close())
	R, err := Open(file)
	require.NoError(t, err)
	defer R.Close()
	F, err := R.Next()
	require.NoError(t, err)
	assert.Nil(t, F.Forces)
	_, err = R.Next()
	assert.Equal(t, io.EOF, err)
	assert.False(t, R.Readable())
}

func TestStructureMismatch(t *testing.T) {
	S := readTestStructure(t)
	F := &Frame{Symbols: []string{"H"}, Coords: v3.Zeros(1), Cell: S.Cell}
	_, err := F.Structure(S.Topology)
	assert.Error(t, err)
	F.Cell = nil
	_, err = F.Structure(nil)
	assert.Error(t, err)
}

func TestParseComment(t *testing.T) {
	m := parseComment(`Lattice="1 0 0 0 1 0 0 0 1" energy=-3.5 flag pbc="T T T" image=2`)
	assert.Equal(t, "1 0 0 0 1 0 0 0 1", m["Lattice"])
	assert.Equal(t, "-3.5", m["energy"])
	assert.Equal(t, "T T T", m["pbc"])
	assert.Equal(t, "2", m["image"])
	_, ok := m["flag"]
	assert.True(t, ok)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nothing.traj"))
	assert.Error(t, err)
}
