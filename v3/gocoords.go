/*
 * gocoords.go, part of goNEB.
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

package v3

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//Zeros returns a zero-filled Matrix with vecs vectors and 3 in the other dimension.
func Zeros(vecs int) *Matrix {
	const cols int = 3
	f := make([]float64, cols*vecs)
	return &Matrix{mat.NewDense(vecs, cols, f)}
}

//NVecs returns the number of vecs in F.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != 3 {
		panic(ErrNotXx3Matrix)
	}
	return r
}

//SomeVecs puts in F the vectors of A with the indexes in clist, in the clist order.
func (F *Matrix) SomeVecs(A *Matrix, clist []int) {
	fr := F.NVecs()
	if fr != len(clist) {
		panic(ErrShape)
	}
	for key, val := range clist {
		F.SetRow(key, A.RawRowView(val)[:3])
	}
}

//SetVecs sets the vectors of F with indexes in clist to the vectors of A,
//in order. It is the inverse of SomeVecs.
func (F *Matrix) SetVecs(A *Matrix, clist []int) {
	if A.NVecs() != len(clist) {
		panic(ErrShape)
	}
	for key, val := range clist {
		F.SetRow(val, A.RawRowView(key)[:3])
	}
}

//String returns a neat string representation of a Matrix
func (F *Matrix) String() string {
	r := F.NVecs()
	v := make([]string, 0, r+2)
	v = append(v, "[")
	for i := 0; i < r; i++ {
		row := F.RawRowView(i)
		v = append(v, fmt.Sprintf(" %10.5f %10.5f %10.5f", row[0], row[1], row[2]))
	}
	v = append(v, "]")
	return strings.Join(v, "\n")
}
