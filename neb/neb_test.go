/*
 * neb_test.go, part of goNEB.
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

package neb

import (
	"context"
	"math"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	chem "github.com/rmera/goneb"
	"github.com/rmera/goneb/opt"
	"github.com/rmera/goneb/qm"
	"github.com/rmera/goneb/traj"
	v3 "github.com/rmera/goneb/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//valley is a potential for the second atom of a structure with a minimum at x=-1 and
//another one at x=1, joined by the curved valley y = C(1-x^2). The saddle point is at (0, C)
//with energy A.
type valley struct {
	A, B, C float64
	calls   int64
	delay   time.Duration
	running int64
	maxrun  int64
	fail    bool
}

func (V *valley) Calculate(ctx context.Context, S *chem.Structure) (*qm.Result, error) {
	atomic.AddInt64(&V.calls, 1)
	r := atomic.AddInt64(&V.running, 1)
	defer atomic.AddInt64(&V.running, -1)
	for {
		m := atomic.LoadInt64(&V.maxrun)
		if r <= m || atomic.CompareAndSwapInt64(&V.maxrun, m, r) {
			break
		}
	}
	if V.delay > 0 {
		time.Sleep(V.delay)
	}
	if V.fail {
		return nil, errors.New("SCF exploded")
	}
	x, y := S.Coords.At(1, 0), S.Coords.At(1, 1)
	w := y - V.C*(1-x*x)
	e := V.A*(x*x-1)*(x*x-1) + V.B*w*w
	f := v3.Zeros(S.Len())
	f.Set(1, 0, -(4*V.A*x*(x*x-1) + 2*V.B*w*2*V.C*x))
	f.Set(1, 1, -2*V.B*w)
	return &qm.Result{Energy: e, Forces: f}, nil
}

func valleyStructure(t *testing.T, x float64) *chem.Structure {
	ats := []*chem.Atom{
		{Symbol: "Ir"},
		{Symbol: "H", Move: [3]bool{true, true, true}},
	}
	top, err := chem.NewTopology(ats)
	require.NoError(t, err)
	coords, _ := v3.NewMatrix([]float64{5, 5, 5, x, 0, 0})
	cell, _ := chem.NewCell([]float64{10, 0, 0, 0, 10, 0, 0, 0, 10})
	S, err := chem.NewStructure(top, coords, cell)
	require.NoError(t, err)
	return S
}

func valleyBand(t *testing.T, V *valley, n int, o Options) *Band {
	ctx := context.Background()
	ini, fin := valleyStructure(t, -1), valleyStructure(t, 1)
	ri, err := V.Calculate(ctx, ini)
	require.NoError(t, err)
	rf, err := V.Calculate(ctx, fin)
	require.NoError(t, err)
	B, err := NewBand(ini, fin, ri, rf, n, func(i int) qm.Engine { return V }, o)
	require.NoError(t, err)
	require.NoError(t, B.Interpolate(ctx, Linear))
	return B
}

func TestClimbingImage(t *testing.T) {
	for _, method := range []string{ImprovedTangent, ASENEB} {
		V := &valley{A: 0.5, B: 2, C: 0.3}
		o := DefaultOptions()
		o.Method = method
		o.K = 1
		B := valleyBand(t, V, 5, o)
		_, err := B.Barrier()
		assert.ErrorIs(t, err, ErrNotConverged)

		err = B.Relax(context.Background(), opt.NewFIRE(), 0.01, 0.5, 3000)
		require.NoError(t, err, method)
		assert.True(t, B.Converged())
		assert.True(t, B.Climbing())
		imax := B.Highest()
		assert.Equal(t, 3, imax, method)
		saddle := B.Images()[imax].S.Coords.RawRowView(1)
		assert.InDelta(t, 0, saddle[0], 0.02, method)
		assert.InDelta(t, 0.3, saddle[1], 0.02, method)
		b, err := B.Barrier()
		require.NoError(t, err)
		assert.InDelta(t, 0.5, b.Forward, 0.005, method)
		assert.InDelta(t, 0.5, b.Reverse, 0.005, method)
		assert.InDelta(t, 0, b.Reaction, 1e-9, method)
		assert.GreaterOrEqual(t, b.ForwardFit, b.Forward-1e-9)
		assert.Equal(t, imax, b.Saddle)
		//fixed atom
		for _, img := range B.Images() {
			assert.Equal(t, []float64{5, 5, 5}, img.S.Coords.RawRowView(0)[:3])
		}
	}
}

func TestStrictThreshold(t *testing.T) {
	V := &valley{A: 0.5, B: 2, C: 0.3}
	B := valleyBand(t, V, 3, DefaultOptions())
	B.SetClimbing(true)
	f, err := B.Forces(context.Background())
	require.NoError(t, err)
	fm := opt.MaxForce(f)
	require.Greater(t, fm, 0.0)
	err = B.Relax(context.Background(), opt.NewFIRE(), fm, 0, 0)
	assert.True(t, errors.Is(err, opt.ErrNotConverged))
	assert.False(t, B.Converged())
}

func TestDynamicFreezes(t *testing.T) {
	V := &valley{A: 0.5, B: 2, C: 0}
	o := DefaultOptions()
	o.Climb = false
	B := valleyBand(t, V, 3, o)
	//a straight valley, the linear band is already converged except for image 1
	B.images[1].S.Coords.Set(1, 1, 0.2)
	B.images[1].Result = nil
	B.fmax = 0.05
	f, err := B.Forces(context.Background())
	require.NoError(t, err)
	assert.False(t, B.frozen[1])
	assert.True(t, B.frozen[2])
	assert.True(t, B.frozen[3])
	for _, v := range f[6:] {
		assert.Equal(t, 0.0, v)
	}
	calls := atomic.LoadInt64(&V.calls)
	pos := B.Positions()
	for i := range pos {
		pos[i] += 0.01
	}
	B.SetPositions(pos)
	assert.InDelta(t, 0.01, B.images[1].S.Coords.At(1, 2), 1e-12)
	assert.Equal(t, 0.0, B.images[2].S.Coords.At(1, 2), "frozen image moved")
	assert.Equal(t, 5.0, B.images[1].S.Coords.At(0, 0), "fixed atom moved")
	_, err = B.Forces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, calls+1, atomic.LoadInt64(&V.calls), "only the moved image should be calculated")
}

func TestParallel(t *testing.T) {
	V := &valley{A: 0.5, B: 2, C: 0.3, delay: 20 * time.Millisecond}
	o := DefaultOptions()
	o.Parallel = 3
	B := valleyBand(t, V, 8, o)
	_, err := B.Forces(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&V.maxrun), int64(3))
	assert.Greater(t, atomic.LoadInt64(&V.maxrun), int64(1))
	for _, img := range B.Images() {
		assert.NotNil(t, img.Result)
	}
}

func TestEngineFailure(t *testing.T) {
	V := &valley{A: 0.5, B: 2, C: 0.3}
	B := valleyBand(t, V, 3, DefaultOptions())
	V.fail = true
	err := B.Relax(context.Background(), opt.NewFIRE(), 0.05, 0, 10)
	require.Error(t, err)
	assert.False(t, errors.Is(err, opt.ErrNotConverged))
	assert.Contains(t, err.Error(), "SCF exploded")
}

func TestBadBands(t *testing.T) {
	V := &valley{A: 0.5, B: 2}
	ini, fin := valleyStructure(t, -1), valleyStructure(t, 1)
	r, _ := V.Calculate(context.Background(), ini)
	eng := func(i int) qm.Engine { return V }
	_, err := NewBand(ini, fin, r, r, 0, eng, DefaultOptions())
	assert.Error(t, err)
	o := DefaultOptions()
	o.Method = "spline"
	_, err = NewBand(ini, fin, r, r, 3, eng, o)
	assert.Error(t, err)
	fin.Atoms[1].Symbol = "C"
	_, err = NewBand(ini, fin, r, r, 3, eng, DefaultOptions())
	assert.Error(t, err)
	B := valleyBand(t, V, 3, DefaultOptions())
	assert.Error(t, B.Interpolate(context.Background(), "cubic"))
}

func TestLinear(t *testing.T) {
	B := valleyBand(t, &valley{A: 0.5, B: 2}, 3, DefaultOptions())
	for i, x := range []float64{-1, -0.5, 0, 0.5, 1} {
		assert.InDelta(t, x, B.Images()[i].S.Coords.At(1, 0), 1e-12)
	}
}

func TestIDPP(t *testing.T) {
	ats := []*chem.Atom{
		{Symbol: "C"},
		{Symbol: "H", Move: [3]bool{true, true, true}},
	}
	top, _ := chem.NewTopology(ats)
	cell, _ := chem.NewCell([]float64{10, 0, 0, 0, 10, 0, 0, 0, 10})
	c1, _ := v3.NewMatrix([]float64{0, 0, 0, 1.5, 0, 0})
	c2, _ := v3.NewMatrix([]float64{0, 0, 0, 0, 1.5, 0})
	ini, _ := chem.NewStructure(top, c1, cell)
	fin, _ := chem.NewStructure(top.CopyAtoms(), c2, cell)
	zero := &qm.Result{Forces: v3.Zeros(2)}
	B, err := NewBand(ini, fin, zero, zero, 3, func(i int) qm.Engine { return nil }, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, B.Interpolate(context.Background(), Linear))
	mid := B.Images()[2].S.Coords
	linear := floatsNorm(mid.RawRowView(1))
	assert.InDelta(t, 1.5/math.Sqrt2, linear, 1e-9)
	require.NoError(t, B.Interpolate(context.Background(), IDPP))
	mid = B.Images()[2].S.Coords
	d := floatsNorm(mid.RawRowView(1))
	assert.Greater(t, d, 1.25)
	assert.Equal(t, []float64{0, 0, 0}, mid.RawRowView(0)[:3])
	for _, img := range B.Images()[1:4] {
		assert.Nil(t, img.Result, "IDPP must not leave results in the band")
	}
}

func floatsNorm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func TestIDPPGradient(t *testing.T) {
	S := valleyStructure(t, 1.2)
	S.Coords.Set(1, 1, 0.7)
	n := S.Len()
	target := make([]float64, n*n)
	target[1], target[2] = 3.0, 3.0
	P := idppEngine{target: target}
	r, err := P.Calculate(context.Background(), S)
	require.NoError(t, err)
	h := 1e-6
	for j := 0; j < 3; j++ {
		Sp := S.Copy()
		Sp.Coords.Set(1, j, S.Coords.At(1, j)+h)
		rp, _ := P.Calculate(context.Background(), Sp)
		Sm := S.Copy()
		Sm.Coords.Set(1, j, S.Coords.At(1, j)-h)
		rm, _ := P.Calculate(context.Background(), Sm)
		numeric := -(rp.Energy - rm.Energy) / (2 * h)
		assert.InDelta(t, numeric, r.Forces.At(1, j), 1e-6)
	}
}

func TestPathFromFrames(t *testing.T) {
	V := &valley{A: 0.5, B: 2, C: 0.3}
	o := DefaultOptions()
	o.K = 1
	B := valleyBand(t, V, 5, o)
	require.NoError(t, B.Relax(context.Background(), opt.NewFIRE(), 0.02, 0, 3000))
	name := filepath.Join(t.TempDir(), "band.traj")
	W, err := traj.NewWriter(name)
	require.NoError(t, err)
	write := func(converged bool) {
		for i, img := range B.Images() {
			info := map[string]string{InfoImage: strconv.Itoa(i), InfoConverged: strconv.FormatBool(converged)}
			require.NoError(t, W.Write(img.S, img.Result.Energy, img.Result.Forces, info))
		}
	}
	write(false)
	write(true)
	require.NoError(t, W.Close())
	frames, err := traj.ReadAll(name)
	require.NoError(t, err)
	require.Len(t, frames, 14)
	P, err := PathFromFrames(frames)
	require.NoError(t, err)
	assert.True(t, P.Converged)
	b1, err := P.Barrier()
	require.NoError(t, err)
	b2, err := B.Barrier()
	require.NoError(t, err)
	assert.InDelta(t, b2.Forward, b1.Forward, 1e-6)
	assert.InDelta(t, b2.ForwardFit, b1.ForwardFit, 1e-4)

	P, err = PathFromFrames(frames[:7])
	require.NoError(t, err)
	_, err = P.Barrier()
	assert.ErrorIs(t, err, ErrNotConverged)
	_, err = PathFromFrames(frames[1:7])
	assert.Error(t, err)
}

func TestFit(t *testing.T) {
	//a path along x on a parabola E = -x^2, with exact forces.
	P := &Path{Converged: true}
	for _, x := range []float64{-1, -0.5, 0, 0.5, 1.5} {
		c, _ := v3.NewMatrix([]float64{x, 0, 0})
		f, _ := v3.NewMatrix([]float64{2 * x, 0, 0})
		P.Coords = append(P.Coords, c)
		P.Forces = append(P.Forces, f)
		P.Energies = append(P.Energies, 10-x*x)
	}
	F, err := P.Fit()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2.5}, F.S)
	assert.InDelta(t, 2, F.Slopes[0], 1e-12)
	assert.InDelta(t, 0, F.Slopes[2], 1e-12)
	assert.Len(t, F.SFit, 4*fitPoints+1)
	b, err := P.Barrier()
	require.NoError(t, err)
	assert.InDelta(t, 1, b.Forward, 1e-12)
	assert.InDelta(t, 1, b.ForwardFit, 1e-9)
	assert.InDelta(t, 1, b.SaddleS, 1e-9)
	assert.InDelta(t, -1.25, b.Reaction, 1e-12)
	assert.InDelta(t, 2.25, b.Reverse, 1e-12)
	assert.Equal(t, 10.0-1, b.Initial)

	P.Coords[1] = P.Coords[0]
	_, err = P.Fit()
	assert.Error(t, err)
}
