/*
 * interpolate.go, part of goNEB.
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
	"log"

	"github.com/pkg/errors"
	chem "github.com/rmera/goneb"
	"github.com/rmera/goneb/opt"
	"github.com/rmera/goneb/qm"
	v3 "github.com/rmera/goneb/v3"
	"gonum.org/v1/gonum/floats"
)

//IDPP relaxation settings.
const (
	idppFmax  = 0.1
	idppSteps = 100
)

//Interpolate sets the intermediate images along a path between the endpoints. With
//Linear, the images are evenly spaced on the straight line joining the endpoints.
//With IDPP, the linear path is then relaxed on the image dependent pair potential
//(Smidstrup et al., J. Chem. Phys. 140, 214106, 2014), which avoids atoms getting too close.
func (B *Band) Interpolate(ctx context.Context, method string) error {
	B.linear()
	switch method {
	case Linear:
		return nil
	case IDPP:
		return B.idpp(ctx)
	}
	return errors.Errorf("unknown interpolation %q", method)
}

func (B *Band) linear() {
	n := B.N()
	r0 := B.images[0].S.Coords.Flat()
	d := B.images[n+1].S.Coords.Flat()
	floats.Sub(d, r0)
	for i := 1; i <= n; i++ {
		r := make([]float64, len(r0))
		floats.AddScaledTo(r, r0, float64(i)/float64(n+1), d)
		m, _ := v3.NewMatrix(r)
		B.setAll(i, m)
	}
}

//distances returns the matrix of interatomic distances, flattened.
func distances(coords *v3.Matrix) []float64 {
	n := coords.NVecs()
	ret := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(coords.RawRowView(i), coords.RawRowView(j), 2)
			ret[i*n+j] = d
			ret[j*n+i] = d
		}
	}
	return ret
}

//idppEngine gives the energy and forces on the image dependent pair potential
//E = sum_{i<j} (d_ij - target_ij)^2 / d_ij^4
type idppEngine struct {
	target []float64
}

func (P idppEngine) Calculate(ctx context.Context, S *chem.Structure) (*qm.Result, error) {
	n := S.Len()
	d := distances(S.Coords)
	f := v3.Zeros(n)
	e := 0.0
	for i := 0; i < n; i++ {
		ri := S.Coords.RawRowView(i)
		for j := i + 1; j < n; j++ {
			dij := d[i*n+j]
			if dij == 0 {
				return nil, errors.Errorf("atoms %d and %d overlap", i+1, j+1)
			}
			dd := dij - P.target[i*n+j]
			d4 := dij * dij * dij * dij
			e += dd * dd / d4
			//dE/dd
			de := 2 * dd / d4 * (1 - 2*dd/dij)
			rj := S.Coords.RawRowView(j)
			for k := 0; k < 3; k++ {
				u := (ri[k] - rj[k]) / dij
				f.Set(i, k, f.At(i, k)-de*u)
				f.Set(j, k, f.At(j, k)+de*u)
			}
		}
	}
	return &qm.Result{Energy: e, Forces: f}, nil
}

//idpp relaxes the (already linearly interpolated) band on the IDPP surface.
func (B *Band) idpp(ctx context.Context) error {
	n := B.N()
	d0 := distances(B.images[0].S.Coords)
	dd := distances(B.images[n+1].S.Coords)
	floats.Sub(dd, d0)
	engine := func(i int) qm.Engine {
		target := make([]float64, len(d0))
		floats.AddScaledTo(target, d0, float64(i)/float64(n+1), dd)
		return idppEngine{target: target}
	}
	zero := &qm.Result{Forces: v3.Zeros(B.natoms)}
	o := B.opts
	o.Climb, o.Dynamic, o.Verbose = false, false, false
	P, err := NewBand(B.images[0].S, B.images[n+1].S, zero, zero, n, engine, o)
	if err != nil {
		return errors.Wrap(err, "IDPP")
	}
	for i := 1; i <= n; i++ {
		P.setAll(i, B.images[i].S.Coords)
	}
	err = opt.NewFIRE().Run(ctx, P, idppFmax, idppSteps)
	if err != nil && !errors.Is(err, opt.ErrNotConverged) {
		return errors.Wrap(err, "IDPP")
	}
	if err != nil && B.opts.Verbose {
		log.Printf("IDPP interpolation not converged after %d steps, using it anyway", idppSteps)
	}
	for i := 1; i <= n; i++ {
		B.setAll(i, P.images[i].S.Coords)
	}
	return nil
}
