/*
 * forces.go, part of goNEB.
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
	"math"

	"gonum.org/v1/gonum/floats"
)

//nebForces puts in B.nebforces the forces for each intermediate image: the true force
//perpendicular to the tangent plus the spring force along the tangent. The climbing
//image gets no spring force and its true force along the tangent is inverted.
func (B *Band) nebForces() {
	n := B.N()
	e := B.Energies()
	k := B.opts.K
	pos := make([][]float64, n+2)
	for i, img := range B.images {
		pos[i] = img.S.Coords.Flat()
	}
	t1 := make([]float64, len(pos[0]))
	floats.SubTo(t1, pos[1], pos[0])
	nt1 := floats.Norm(t1, 2)
	for i := 1; i <= n; i++ {
		t2 := make([]float64, len(t1))
		floats.SubTo(t2, pos[i+1], pos[i])
		nt2 := floats.Norm(t2, 2)
		f := B.images[i].Result.Forces.Flat()
		for j, m := range B.mask {
			f[j] *= m
		}
		var tangent []float64
		tt := 1.0
		if B.opts.Method == ASENEB {
			tangent = make([]float64, len(t1))
			switch {
			case i < B.imax:
				copy(tangent, t2)
			case i > B.imax:
				copy(tangent, t1)
			default:
				floats.AddTo(tangent, t1, t2)
			}
			tt = floats.Dot(tangent, tangent)
		} else {
			tangent = improvedTangent(t1, t2, e[i-1], e[i], e[i+1])
		}
		ft := floats.Dot(f, tangent)
		switch {
		case i == B.imax && B.climbing:
			floats.AddScaled(f, -2*ft/tt, tangent)
		case B.opts.Method == ASENEB:
			floats.AddScaled(f, -ft/tt, tangent)
			//spring force k(t2 - t1) projected on the tangent
			spring := floats.Dot(t2, tangent) - floats.Dot(t1, tangent)
			floats.AddScaled(f, k*spring/tt, tangent)
		default:
			floats.AddScaled(f, -ft, tangent)
			floats.AddScaled(f, k*(nt2-nt1), tangent)
		}
		for j, m := range B.mask {
			f[j] *= m
		}
		B.nebforces[i] = f
		t1, nt1 = t2, nt2
	}
}

//improvedTangent returns the normalized upwind tangent of Henkelman and Jonsson
//(J. Chem. Phys. 113, 9978, 2000), for an image with energy e between images with
//energies eprev and enext. t1 and t2 are the vectors from the previous image to this
//one and from this one to the next.
func improvedTangent(t1, t2 []float64, eprev, e, enext float64) []float64 {
	tangent := make([]float64, len(t1))
	switch {
	case enext > e && e > eprev:
		copy(tangent, t2)
	case enext < e && e < eprev:
		copy(tangent, t1)
	default:
		dvmax := math.Max(math.Abs(enext-e), math.Abs(eprev-e))
		dvmin := math.Min(math.Abs(enext-e), math.Abs(eprev-e))
		if enext > eprev {
			floats.ScaleTo(tangent, dvmax, t2)
			floats.AddScaled(tangent, dvmin, t1)
		} else {
			floats.ScaleTo(tangent, dvmin, t2)
			floats.AddScaled(tangent, dvmax, t1)
		}
	}
	n := floats.Norm(tangent, 2)
	if n == 0 {
		//flat band
		floats.AddTo(tangent, t1, t2)
		n = floats.Norm(tangent, 2)
	}
	if n > 0 {
		floats.Scale(1/n, tangent)
	}
	return tangent
}
