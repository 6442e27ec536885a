/*
 * cell_test.go, part of goNEB.
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
	"testing"

	v3 "github.com/rmera/goneb/v3"
)

func TestCell(Te *testing.T) {
	C, err := NewCell([]float64{5, 0, 0, 2.5, 4.330127, 0, 0, 0, 20})
	if err != nil {
		Te.Fatal(err)
	}
	if v := C.Volume(); math.Abs(v-5*4.330127*20) > 1e-6 {
		Te.Errorf("Volume is %f", v)
	}
	frac, _ := v3.NewMatrix([]float64{0.5, 0.5, 0.5, 0, 1, 0.25})
	cart := C.Frac2Cart(frac)
	if c := cart.RawRowView(0); math.Abs(c[0]-3.75) > 1e-9 || math.Abs(c[2]-10) > 1e-9 {
		Te.Errorf("Wrong cartesian coordinates %v", c)
	}
	back, err := C.Cart2Frac(cart)
	if err != nil {
		Te.Fatal(err)
	}
	f, b := frac.Flat(), back.Flat()
	for i := range f {
		if math.Abs(f[i]-b[i]) > 1e-9 {
			Te.Errorf("Fractional coordinates didn't survive the round trip: %v -> %v", f, b)
			break
		}
	}
}

func TestBadCell(Te *testing.T) {
	if _, err := NewCell([]float64{1, 0, 0, 2, 0, 0, 0, 0, 1}); err == nil {
		Te.Error("Linearly dependent lattice vectors should be rejected")
	}
	if _, err := NewCell([]float64{1, 0, 0}); err == nil {
		Te.Error("A cell with 3 components should be rejected")
	}
}
