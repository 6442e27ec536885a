/*
 * gonum.go, part of goNEB.
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

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package v3

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//Matrix is a set of vectors in 3D space, one vector per row.
//Within goNEB it holds cartesian coordinates (in A) and forces
//(in eV/A) for the atoms of a structure, in the same order as the atoms.
type Matrix struct {
	*mat.Dense
}

//NewMatrix generates and returns a Matrix with 3 columns from data.
//The data slice is used as backing storage, not copied.
func NewMatrix(data []float64) (*Matrix, error) {
	const cols int = 3
	l := len(data)
	rows := l / cols
	if l%cols != 0 || l == 0 {
		return nil, Error{fmt.Sprintf("Input slice lenght %d not divisible by %d, or empty", l, cols), []string{"NewMatrix"}, true}
	}
	r := mat.NewDense(rows, cols, data)
	return &Matrix{r}, nil
}

//VecView returns view of the given vector of the matrix.
//Changes in the view are reflected in F and vice-versa.
func (F *Matrix) VecView(i int) *Matrix {
	r := F.Dense.Slice(i, i+1, 0, 3).(*mat.Dense)
	return &Matrix{r}
}

//Flat returns a newly allocated slice with all the vectors of F, one after the other.
func (F *Matrix) Flat() []float64 {
	r := F.NVecs()
	ret := make([]float64, 3*r)
	for i := 0; i < r; i++ {
		copy(ret[3*i:3*i+3], F.RawRowView(i))
	}
	return ret
}

//SetFlat sets the vectors of F from a flat slice as returned by Flat. Panics
//if the lengths don't match.
func (F *Matrix) SetFlat(data []float64) {
	r := F.NVecs()
	if len(data) != 3*r {
		panic(ErrShape)
	}
	for i := 0; i < r; i++ {
		F.SetRow(i, data[3*i:3*i+3])
	}
}

//VecNorm returns the euclidean norm of the ith vector of F.
func (F *Matrix) VecNorm(i int) float64 {
	row := F.RawRowView(i)
	return floats.Norm(row[:3], 2)
}

//Copy returns a deep copy of F.
func (F *Matrix) Copy() *Matrix {
	return &Matrix{mat.DenseCopyOf(F.Dense)}
}

type Error struct {
	message  string
	deco     []string
	critical bool
}

//Error returns a string with an error message.
func (err Error) Error() string {
	return err.message
}

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice.
func (err Error) Decorate(dec string) []string {
	err.deco = append(err.deco, dec)
	return err.deco
}

//Critical return whether the error is critical or it can be ignored
func (err Error) Critical() bool { return err.critical }

//PanicMsg is a message used for panics, even though it does satisfy the error interface.
//for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNotXx3Matrix = PanicMsg("goNEB/v3: A Matrix should have 3 columns")
	ErrShape        = PanicMsg("goNEB/v3: Dimension mismatch")
)
