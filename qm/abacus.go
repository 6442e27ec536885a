/*
 * abacus.go, part of goNEB.
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

//In order to use this part of the library you need the ABACUS program (https://abacus.ustc.edu.cn).
//Please cite the ABACUS references if you use the program.

package qm

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	chem "github.com/rmera/goneb"
	v3 "github.com/rmera/goneb/v3"
)

var (
	_ Handle = (*AbacusHandle)(nil)
	_ Engine = (*AbacusHandle)(nil)
)

//AbacusHandle runs ABACUS single-point calculations in a working directory.
//A handle must not be used for two calculations at the same time.
type AbacusHandle struct {
	dir     string
	params  Params
	profile Profile
	order   []int //order[i] is the index in the input structure of the ith atom in the STRU file
	Verbose bool
}

//NewAbacusHandle returns a handle that will run in directory dir, which is created if needed,
//with the given parameters and launch profile.
func NewAbacusHandle(dir string, params Params, profile Profile) *AbacusHandle {
	return &AbacusHandle{dir: dir, params: params.Copy(), profile: profile}
}

//Dir returns the working directory of the handle.
func (O *AbacusHandle) Dir() string {
	return O.dir
}

//LogFile returns the name of the ABACUS log which contains the results.
func (O *AbacusHandle) LogFile() string {
	suffix := O.params.Suffix
	if suffix == "" {
		suffix = "ABACUS"
	}
	return filepath.Join(O.dir, "OUT."+suffix, fmt.Sprintf("running_%s.log", O.params.Calculation))
}

func (O *AbacusHandle) err(message, additional string, deco ...string) error {
	return &Error{message, Abacus, O.dir, additional, deco, true}
}

//BuildInput writes the INPUT, STRU and KPT files for S in the working directory.
//Any previous output is removed, so old results are never read.
func (O *AbacusHandle) BuildInput(S *chem.Structure) error {
	if err := O.params.Check(S.Elements()); err != nil {
		err.(*Error).Decorate("BuildInput")
		return err
	}
	if err := os.MkdirAll(O.dir, 0o755); err != nil {
		return O.err(ErrCantInput, err.Error(), "os.MkdirAll", "BuildInput")
	}
	if err := os.RemoveAll(filepath.Dir(O.LogFile())); err != nil {
		return O.err(ErrCantInput, err.Error(), "os.RemoveAll", "BuildInput")
	}
	input, err := os.Create(filepath.Join(O.dir, "INPUT"))
	if err != nil {
		return O.err(ErrCantInput, err.Error(), "os.Create", "BuildInput")
	}
	defer input.Close()
	w := bufio.NewWriter(input)
	fmt.Fprintln(w, "INPUT_PARAMETERS")
	for _, v := range O.params.inputLines() {
		fmt.Fprintf(w, "%-20s %s\n", v[0], v[1])
	}
	if err := w.Flush(); err != nil {
		return O.err(ErrCantInput, err.Error(), "bufio.Flush", "BuildInput")
	}
	if err := input.Close(); err != nil {
		return O.err(ErrCantInput, err.Error(), "os.Close", "BuildInput")
	}
	var orb map[string]string
	if !O.params.PlaneWaves() {
		orb = O.params.Basis
	}
	O.order, err = chem.STRUFileWrite(filepath.Join(O.dir, "STRU"), S, O.params.PP, orb)
	if err != nil {
		return O.err(ErrCantInput, err.Error(), "chem.STRUFileWrite", "BuildInput")
	}
	k := O.params.Kpts
	kpt := fmt.Sprintf("K_POINTS\n0\nGamma\n%d %d %d 0 0 0\n", k[0], k[1], k[2])
	if err := os.WriteFile(filepath.Join(O.dir, "KPT"), []byte(kpt), 0o644); err != nil {
		return O.err(ErrCantInput, err.Error(), "os.WriteFile", "BuildInput")
	}
	return nil
}

//Run launches ABACUS in the working directory and waits for it to finish. The standard
//output and error go to abacus.out in the same directory.
func (O *AbacusHandle) Run(ctx context.Context) error {
	out, err := os.Create(filepath.Join(O.dir, "abacus.out"))
	if err != nil {
		return O.err(ErrNotRunning, err.Error(), "os.Create", "Run")
	}
	defer out.Close()
	command := O.profile.Command(ctx, O.dir)
	command.Stdout = out
	command.Stderr = out
	if O.Verbose {
		log.Printf("Running %s in %s with OMP_NUM_THREADS=%d", strings.Join(O.profile.Argv(), " "), O.dir, O.profile.OMP)
	}
	if err := command.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return O.err(ErrNotRunning, err.Error(), "exec.Run", "Run")
	}
	return nil
}

//Calculate builds the input for S, runs ABACUS and returns the energy and forces.
func (O *AbacusHandle) Calculate(ctx context.Context, S *chem.Structure) (*Result, error) {
	if err := O.BuildInput(S); err != nil {
		return nil, errDecorate(err, "Calculate")
	}
	if err := O.Run(ctx); err != nil {
		return nil, errDecorate(err, "Calculate")
	}
	e, err := O.Energy()
	if err != nil {
		return nil, errDecorate(err, "Calculate")
	}
	f, err := O.Forces()
	if err != nil {
		return nil, errDecorate(err, "Calculate")
	}
	return &Result{Energy: e, Forces: f}, nil
}

var (
	abacusTermination = regexp.MustCompile(`(?i)total\s+time`)
	abacusSCFFail     = regexp.MustCompile(`(?i)convergence has not been achieved`)
)

func (O *AbacusHandle) readLog() ([]string, error) {
	f, err := os.Open(O.LogFile())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines := make([]string, 0, 1000)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

//checkLog returns an error if the SCF didn't converge or the program didn't finish.
func (O *AbacusHandle) checkLog(lines []string, caller string) error {
	finished := false
	for _, l := range lines {
		if abacusSCFFail.MatchString(l) {
			return O.err(ErrSCFNotConverged, strings.TrimSpace(l), caller)
		}
		if abacusTermination.MatchString(l) {
			finished = true
		}
	}
	if !finished {
		return O.err(ErrProbableProblem, O.LogFile(), caller)
	}
	return nil
}

//Energy returns the last total energy, in eV, from the ABACUS log.
//It returns error if the SCF didn't converge or the calculation didn't end normally.
func (O *AbacusHandle) Energy() (float64, error) {
	lines, err := O.readLog()
	if err != nil {
		return 0, O.err(ErrNoEnergy, err.Error(), "readLog", "Energy")
	}
	if err := O.checkLog(lines, "Energy"); err != nil {
		return 0, err
	}
	for i := len(lines) - 1; i >= 0; i-- {
		fields := strings.Fields(lines[i])
		if len(fields) < 2 || fields[0] != "!FINAL_ETOT_IS" {
			continue
		}
		e, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, O.err(ErrNoEnergy, err.Error(), "strconv.ParseFloat", "Energy")
		}
		return e, nil
	}
	return 0, O.err(ErrNoEnergy, "no !FINAL_ETOT_IS line", "Energy")
}

//Forces returns the last forces, in eV/A, from the ABACUS log, in the order of the atoms
//in the structure given to BuildInput. Both the old layout, with the table between "><"
//lines, and the newer one, between dashed lines, are understood.
func (O *AbacusHandle) Forces() (*v3.Matrix, error) {
	if O.order == nil {
		return nil, O.err(ErrNoForces, "BuildInput was not called", "Forces")
	}
	lines, err := O.readLog()
	if err != nil {
		return nil, O.err(ErrNoForces, err.Error(), "readLog", "Forces")
	}
	if err := O.checkLog(lines, "Forces"); err != nil {
		return nil, err
	}
	start := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], "TOTAL-FORCE") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, O.err(ErrNoForces, "no TOTAL-FORCE block", "Forces")
	}
	natoms := len(O.order)
	forces := v3.Zeros(natoms)
	read := 0
	for _, l := range lines[start+1:] {
		if read == natoms {
			break
		}
		fields := strings.Fields(l)
		if len(fields) < 4 {
			continue
		}
		n := len(fields)
		var f [3]float64
		ok := true
		for j := 0; j < 3; j++ {
			f[j], err = strconv.ParseFloat(fields[n-3+j], 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue //headers and separators
		}
		forces.SetRow(O.order[read], f[:])
		read++
	}
	if read != natoms {
		return nil, O.err(ErrNoForces, fmt.Sprintf("found %d forces for %d atoms", read, natoms), "Forces")
	}
	return forces, nil
}

//errDecorate decorates err with the caller's name if err implements chem.Error.
//Other errors are returned unchanged.
func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	if err2, ok := err.(chem.Error); ok {
		err2.Decorate(caller)
		return err2
	}
	return err
}
