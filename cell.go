/*
 * cell.go, part of goNEB.
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
	"fmt"

	v3 "github.com/rmera/goneb/v3"
	matrix "github.com/skelterjohn/go.matrix"
	"gonum.org/v1/gonum/mat"
)

//Cell contains the 3 lattice vectors of a periodic structure, in A,
//one vector per row.
type Cell struct {
	vecs [9]float64
}

//NewCell returns a cell from the 9 components of the a, b and c vectors, in that order.
//It returns an error if the vectors are linearly dependent.
func NewCell(vecs []float64) (*Cell, error) {
	if len(vecs) != 9 {
		return nil, &CError{fmt.Sprintf("A cell needs 9 components, got %d", len(vecs)), []string{"NewCell"}}
	}
	C := new(Cell)
	copy(C.vecs[:], vecs)
	if v := C.Volume(); v < 1e-8 && v > -1e-8 {
		return nil, &CError{"Lattice vectors are linearly dependent", []string{"NewCell"}}
	}
	return C, nil
}

//Vectors returns a copy of the 9 components of the lattice vectors.
func (C *Cell) Vectors() []float64 {
	ret := make([]float64, 9)
	copy(ret, C.vecs[:])
	return ret
}

//Vec returns the ith lattice vector.
func (C *Cell) Vec(i int) [3]float64 {
	return [3]float64{C.vecs[3*i], C.vecs[3*i+1], C.vecs[3*i+2]}
}

func (C *Cell) goMatrix() *matrix.DenseMatrix {
	return matrix.MakeDenseMatrix(C.Vectors(), 3, 3)
}

//Volume returns the (signed) volume of the cell in A^3
func (C *Cell) Volume() float64 {
	return C.goMatrix().Det()
}

//Frac2Cart returns the cartesian coordinates for the fractional coordinates frac.
func (C *Cell) Frac2Cart(frac *v3.Matrix) *v3.Matrix {
	ret := v3.Zeros(frac.NVecs())
	ret.Mul(frac.Dense, mat.NewDense(3, 3, C.Vectors()))
	return ret
}

//Cart2Frac returns the fractional coordinates for the cartesian coordinates cart.
func (C *Cell) Cart2Frac(cart *v3.Matrix) (*v3.Matrix, error) {
	inv, err := C.goMatrix().Inverse()
	if err != nil {
		return nil, &CError{err.Error(), []string{"go.matrix.Inverse", "Cart2Frac"}}
	}
	invdata := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			invdata[3*i+j] = inv.Get(i, j)
		}
	}
	ret := v3.Zeros(cart.NVecs())
	ret.Mul(cart.Dense, mat.NewDense(3, 3, invdata))
	return ret, nil
}
