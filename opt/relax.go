/*
 * relax.go, part of goNEB.
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

	chem "github.com/rmera/goneb"
	"github.com/rmera/goneb/qm"
)

//Relaxable is a structure whose energy and forces are obtained from a QM engine.
//The components that can't move keep their initial values and get zero forces.
type Relaxable struct {
	S      *chem.Structure
	engine qm.Engine
	mask   []float64
	last   *qm.Result
}

//NewRelaxable returns a Relaxable for S, which will be calculated with engine.
//S is modified by the optimization.
func NewRelaxable(S *chem.Structure, engine qm.Engine) *Relaxable {
	return &Relaxable{S: S, engine: engine, mask: S.MoveMask()}
}

//Positions returns the current coordinates, flattened.
func (R *Relaxable) Positions() []float64 {
	return R.S.Coords.Flat()
}

//SetPositions sets the coordinates that are allowed to move to those in pos.
func (R *Relaxable) SetPositions(pos []float64) {
	cur := R.S.Coords.Flat()
	changed := false
	for i, m := range R.mask {
		if m != 0 && cur[i] != pos[i] {
			cur[i] = pos[i]
			changed = true
		}
	}
	if changed {
		R.S.Coords.SetFlat(cur)
		R.last = nil
	}
}

//Calculate returns the energy and forces for the current coordinates. The
//forces are not masked.
func (R *Relaxable) Calculate(ctx context.Context) (*qm.Result, error) {
	if R.last != nil {
		return R.last, nil
	}
	r, err := R.engine.Calculate(ctx, R.S)
	if err != nil {
		return nil, err
	}
	R.last = r
	return r, nil
}

//Forces returns the forces on the components that can move, the rest are set to zero.
func (R *Relaxable) Forces(ctx context.Context) ([]float64, error) {
	r, err := R.Calculate(ctx)
	if err != nil {
		return nil, err
	}
	f := r.Forces.Flat()
	for i, m := range R.mask {
		f[i] *= m
	}
	return f, nil
}

//Energy returns the energy of the structure
func (R *Relaxable) Energy(ctx context.Context) (float64, error) {
	r, err := R.Calculate(ctx)
	if err != nil {
		return 0, err
	}
	return r.Energy, nil
}

//Last returns the last result calculated, or nil if the coordinates changed after it.
func (R *Relaxable) Last() *qm.Result {
	return R.last
}
