/*
 * fire.go, part of goNEB.
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

package opt

import (
	"context"

	"gonum.org/v1/gonum/floats"
)

//FIRE is the Fast Inertial Relaxation Engine (Bitzek et al., PRL 97, 170201, 2006).
//It only uses forces, which makes it suitable for nudged elastic bands, where there
//is no energy consistent with the forces.
type FIRE struct {
	DT      float64 //initial time step
	MaxStep float64 //largest norm of a single displacement, in A
	DTMax   float64
	NMin    int //steps with positive power before the time step can grow
	FInc    float64
	FDec    float64
	AStart  float64
	FA      float64

	Observers []Observer
	Verbose   bool

	v      []float64
	a      float64
	dt     float64
	nsteps int
}

//NewFIRE returns a FIRE optimizer with the usual parameters.
func NewFIRE() *FIRE {
	return &FIRE{
		DT:      0.1,
		MaxStep: 0.2,
		DTMax:   1.0,
		NMin:    5,
		FInc:    1.1,
		FDec:    0.5,
		AStart:  0.1,
		FA:      0.99,
	}
}

//Name returns FIRE
func (F *FIRE) Name() string { return NameFIRE }

//Reset forgets the velocities, so the next step starts from rest.
func (F *FIRE) Reset() {
	F.v = nil
}

//Run moves atoms until the largest atomic force is smaller than fmax.
func (F *FIRE) Run(ctx context.Context, atoms Atoms, fmax float64, steps int) error {
	F.Reset()
	return iterate(ctx, F.Name(), atoms, fmax, steps, F.Verbose, F.Observers, func(f []float64) {
		F.Step(atoms, f)
	})
}

//Step performs one FIRE step, with the forces f for the current positions.
func (F *FIRE) Step(atoms Atoms, f []float64) {
	if F.v == nil || len(F.v) != len(f) {
		F.v = make([]float64, len(f))
		F.a = F.AStart
		F.dt = F.DT
		F.nsteps = 0
	} else {
		vf := floats.Dot(f, F.v)
		if vf > 0 {
			fnorm := floats.Norm(f, 2)
			vnorm := floats.Norm(F.v, 2)
			floats.Scale(1-F.a, F.v)
			if fnorm > 0 {
				floats.AddScaled(F.v, F.a*vnorm/fnorm, f)
			}
			if F.nsteps > F.NMin {
				F.dt *= F.FInc
				if F.dt > F.DTMax {
					F.dt = F.DTMax
				}
				F.a *= F.FA
			}
			F.nsteps++
		} else {
			for i := range F.v {
				F.v[i] = 0
			}
			F.a = F.AStart
			F.dt *= F.FDec
			F.nsteps = 0
		}
	}
	floats.AddScaled(F.v, F.dt, f)
	dr := make([]float64, len(f))
	floats.AddScaled(dr, F.dt, F.v)
	if n := floats.Norm(dr, 2); n > F.MaxStep {
		floats.Scale(F.MaxStep/n, dr)
	}
	pos := atoms.Positions()
	floats.Add(pos, dr)
	atoms.SetPositions(pos)
}
