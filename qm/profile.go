/*
 * profile.go, part of goNEB.
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
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

//Profile says how to launch the QM program: the MPI launcher, the number of MPI processes
//and the number of OpenMP threads. The threads are set only in the environment of the
//launched process.
type Profile struct {
	Launcher   string //mpirun by default. If empty, the program is run directly
	MPI        int
	OMP        int
	Executable string
}

//NewProfile returns a profile that runs executable with mpirun.
func NewProfile(executable string, mpi, omp int) Profile {
	return Profile{Launcher: "mpirun", MPI: mpi, OMP: omp, Executable: executable}
}

//Argv returns the command line for the program.
func (P Profile) Argv() []string {
	if P.Launcher == "" {
		return []string{P.Executable}
	}
	return []string{P.Launcher, "-np", strconv.Itoa(P.MPI), P.Executable}
}

//Env returns the environment for the launched process.
func (P Profile) Env() []string {
	env := os.Environ()
	if P.OMP > 0 {
		env = append(env, fmt.Sprintf("OMP_NUM_THREADS=%d", P.OMP))
	}
	return env
}

//Command returns the command to run the program in dir. It is killed if ctx is cancelled.
func (P Profile) Command(ctx context.Context, dir string) *exec.Cmd {
	argv := P.Argv()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = P.Env()
	return cmd
}
