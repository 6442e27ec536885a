/*
 * qm.go, part of goNEB.
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

package qm

import (
	"context"

	chem "github.com/rmera/goneb"
	v3 "github.com/rmera/goneb/v3"
)

//Result contains the output of a single-point calculation.
type Result struct {
	Energy float64    //eV
	Forces *v3.Matrix //eV/A, in the atom order of the structure calculated
}

//Copy returns a deep copy of the result.
func (R *Result) Copy() *Result {
	return &Result{Energy: R.Energy, Forces: R.Forces.Copy()}
}

//Engine is anything that can obtain energies and forces for a structure.
//Calculate must honor the cancellation of ctx.
type Engine interface {
	Calculate(ctx context.Context, S *chem.Structure) (*Result, error)
}

//Handle is a QM program running in its own directory. The calculation is set with
//BuildInput, launched with Run, and its results read with Energy and Forces.
type Handle interface {
	Engine

	//BuildInput writes the input files for the structure S.
	BuildInput(S *chem.Structure) error

	//Run runs the QM program for a calculation previously set,
	//and waits for it to finish.
	Run(ctx context.Context) error

	//Energy gets the last energy for a calculation by parsing the
	//QM program's output file.
	Energy() (float64, error)

	//Forces gets the last forces from the output, in the atom
	//order of the structure given to BuildInput.
	Forces() (*v3.Matrix, error)
}
