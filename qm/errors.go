/*
 * errors.go, part of goNEB.
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

package qm

import (
	"fmt"

	chem "github.com/rmera/goneb"
)

var _ chem.Error = (*Error)(nil)

//Error is the error type for the qm package. It contains the name of the program
//and the directory or input that failed, besides the message.
type Error struct {
	message    string
	program    string
	inputname  string
	additional string
	deco       []string
	critical   bool
}

//Error returns a string with an error message.
func (err *Error) Error() string {
	if err.additional == "" {
		return fmt.Sprintf("%s (%s in %s)", err.message, err.program, err.inputname)
	}
	return fmt.Sprintf("%s (%s in %s): %s", err.message, err.program, err.inputname, err.additional)
}

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice.
func (err *Error) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

//Critical returns whether the error is critical or it can be ignored
func (err *Error) Critical() bool { return err.critical }

//Is allows comparing errors with errors.Is, two qm errors are the same if they
//are of the same kind.
func (err *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.message == err.message && (t.program == "" || t.program == err.program)
}

//Sentinel returns an error of the kind msg, which can be used as errors.Is target.
func Sentinel(msg string) error {
	return &Error{message: msg}
}

//Names for the programs.
const (
	Abacus = "ABACUS"
)

//Error messages.
const (
	ErrNoEnergy        = "Couldn't obtain energy"
	ErrNoForces        = "Couldn't obtain forces"
	ErrNotRunning      = "Couldn't run calculation"
	ErrCantInput       = "Couldn't build input"
	ErrSCFNotConverged = "SCF did not converge"
	ErrProbableProblem = "The calculation didn't finish normally"
	ErrMissingFiles    = "Elements without pseudopotential or orbital files"
	ErrBadParams       = "Invalid calculation parameters"
)
