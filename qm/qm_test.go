/*
 * qm_test.go, part of goNEB.
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
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chem "github.com/rmera/goneb"
	v3 "github.com/rmera/goneb/v3"
)

const newLayoutLog = `
 ----------------------------------------------------------------
 TOTAL-FORCE (eV/Angstrom)
 ----------------------------------------------------------------
      H1      0.1000000000     0.0000000000     0.0000000000
      H2      0.0000000000     0.2000000000     0.0000000000
      C1      0.0000000000     0.0000000000     0.3000000000
 ----------------------------------------------------------------
 !FINAL_ETOT_IS -1234.5678 eV
 Total  Time  : 0 h 0 mins 12 secs
`

const oldLayoutLog = `
 !FINAL_ETOT_IS -1000.0 eV
 ><><><><><><><><><><><><><><><><><><><><><><

 TOTAL-FORCE (eV/Angstrom)

 ><><><><><><><><><><><><><><><><><><><><><><

                     atom              x              y              z
                      H1         +9.000         +9.000         +9.000
                      H2         +9.000         +9.000         +9.000
                      C1         +9.000         +9.000         +9.000
 !FINAL_ETOT_IS -1001.5 eV
 ><><><><><><><><><><><><><><><><><><><><><><

 TOTAL-FORCE (eV/Angstrom)

 ><><><><><><><><><><><><><><><><><><><><><><

                     atom              x              y              z
                      H1         -0.100         +0.000         +0.000
                      H2         +0.000         -0.200         +0.000
                      C1         +0.000         +0.000         -0.300

 STRESS
 TOTAL  TIME : 100.3
`

const scfFailLog = `
 !! CONVERGENCE HAS NOT BEEN ACHIEVED !!
 !FINAL_ETOT_IS -1234.5678 eV
 Total  Time  : 0 h 0 mins 12 secs
`

const unfinishedLog = `
 ELEC=      1  --------------------------------
 !FINAL_ETOT_IS -1234.5678 eV
`

//testStructure returns an H-C-H structure, so the species need to be
//regrouped when written.
func testStructure(Te *testing.T) *chem.Structure {
	ats := []*chem.Atom{
		{Symbol: "H", Mass: 1.008, Move: [3]bool{true, true, true}},
		{Symbol: "C", Mass: 12.011, Move: [3]bool{true, true, true}},
		{Symbol: "H", Mass: 1.008, Move: [3]bool{true, true, true}},
	}
	top, err := chem.NewTopology(ats)
	if err != nil {
		Te.Fatal(err)
	}
	coords, _ := v3.NewMatrix([]float64{0, 0, 0, 1.1, 0, 0, 2.2, 0, 0})
	cell, _ := chem.NewCell([]float64{10, 0, 0, 0, 10, 0, 0, 0, 10})
	S, err := chem.NewStructure(top, coords, cell)
	if err != nil {
		Te.Fatal(err)
	}
	return S
}

func testParams() Params {
	p := DefaultParams()
	p.PP = map[string]string{"H": "H.upf", "C": "C.upf"}
	p.Basis = map[string]string{"H": "H.orb", "C": "C.orb"}
	return p
}

//fakeAbacus writes a script that copies the log in the FAKE_ABACUS_LOG variable
//to where ABACUS would write it, and stores the thread number it was given.
func fakeAbacus(Te *testing.T, log string) string {
	dir := Te.TempDir()
	logname := filepath.Join(dir, "canned.log")
	if err := os.WriteFile(logname, []byte(log), 0o644); err != nil {
		Te.Fatal(err)
	}
	Te.Setenv("FAKE_ABACUS_LOG", logname)
	script := filepath.Join(dir, "abacus")
	content := "#!/bin/sh\nmkdir -p OUT.ABACUS\ncp \"$FAKE_ABACUS_LOG\" OUT.ABACUS/running_scf.log\necho \"$OMP_NUM_THREADS\" > omp.txt\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		Te.Fatal(err)
	}
	return script
}

func TestAbacusCalculate(Te *testing.T) {
	for name, log := range map[string]string{"new": newLayoutLog, "old": oldLayoutLog} {
		prof := Profile{Executable: fakeAbacus(Te, log), OMP: 32}
		dir := filepath.Join(Te.TempDir(), "calc")
		ab := NewAbacusHandle(dir, testParams(), prof)
		r, err := ab.Calculate(context.Background(), testStructure(Te))
		if err != nil {
			Te.Fatalf("%s layout: %s", name, err.Error())
		}
		expectedE := -1234.5678
		sign := 1.0
		if name == "old" {
			expectedE = -1001.5
			sign = -1
		}
		if r.Energy != expectedE {
			Te.Errorf("%s layout: energy is %f, expected %f", name, r.Energy, expectedE)
		}
		//written order is H H C, so the C force goes to atom 1
		if math.Abs(r.Forces.At(0, 0)-0.1*sign) > 1e-9 || math.Abs(r.Forces.At(2, 1)-0.2*sign) > 1e-9 || math.Abs(r.Forces.At(1, 2)-0.3*sign) > 1e-9 {
			Te.Errorf("%s layout: forces not mapped back to the input order:\n%s", name, r.Forces)
		}
		omp, err := os.ReadFile(filepath.Join(dir, "omp.txt"))
		if err != nil || strings.TrimSpace(string(omp)) != "32" {
			Te.Errorf("OMP_NUM_THREADS not passed to the program: %q", omp)
		}
		input, err := os.ReadFile(filepath.Join(dir, "INPUT"))
		if err != nil {
			Te.Fatal(err)
		}
		if !strings.HasPrefix(string(input), "INPUT_PARAMETERS") || !strings.Contains(string(input), "orbital_dir") {
			Te.Errorf("Bad INPUT file:\n%s", input)
		}
		kpt, _ := os.ReadFile(filepath.Join(dir, "KPT"))
		if !strings.Contains(string(kpt), "4 4 1 0 0 0") {
			Te.Errorf("Bad KPT file:\n%s", kpt)
		}
	}
	if os.Getenv("OMP_NUM_THREADS") == "32" {
		Te.Error("The thread number leaked to the test process")
	}
}

func TestAbacusFailures(Te *testing.T) {
	cases := map[string]string{
		ErrSCFNotConverged: scfFailLog,
		ErrProbableProblem: unfinishedLog,
	}
	for kind, log := range cases {
		prof := Profile{Executable: fakeAbacus(Te, log)}
		ab := NewAbacusHandle(Te.TempDir(), testParams(), prof)
		_, err := ab.Calculate(context.Background(), testStructure(Te))
		if err == nil {
			Te.Fatalf("Expected error %q", kind)
		}
		if !errors.Is(err, Sentinel(kind)) {
			Te.Errorf("Expected error %q, got %q", kind, err.Error())
		}
	}
	prof := Profile{Executable: filepath.Join(Te.TempDir(), "nonexistent")}
	ab := NewAbacusHandle(Te.TempDir(), testParams(), prof)
	if _, err := ab.Calculate(context.Background(), testStructure(Te)); !errors.Is(err, Sentinel(ErrNotRunning)) {
		Te.Errorf("Expected error %q, got %v", ErrNotRunning, err)
	}
}

func TestBuildInput(Te *testing.T) {
	dir := Te.TempDir()
	ab := NewAbacusHandle(dir, testParams(), Profile{})
	stale := ab.LogFile()
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		Te.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte(newLayoutLog), 0o644); err != nil {
		Te.Fatal(err)
	}
	if err := ab.BuildInput(testStructure(Te)); err != nil {
		Te.Fatal(err)
	}
	if _, err := os.Stat(stale); err == nil {
		Te.Error("The output of a previous calculation was not removed")
	}
	input, err := os.ReadFile(filepath.Join(dir, "INPUT"))
	if err != nil {
		Te.Fatal(err)
	}
	if !strings.HasPrefix(string(input), "INPUT_PARAMETERS\n") || !strings.Contains(string(input), "cal_force") {
		Te.Errorf("Incomplete INPUT file:\n%s", input)
	}
	for _, name := range []string{"STRU", "KPT"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			Te.Errorf("%s not written: %s", name, err.Error())
		}
	}
	//INPUT can't be created.
	bad := Te.TempDir()
	if err := os.Mkdir(filepath.Join(bad, "INPUT"), 0o755); err != nil {
		Te.Fatal(err)
	}
	ab = NewAbacusHandle(bad, testParams(), Profile{})
	if err := ab.BuildInput(testStructure(Te)); !errors.Is(err, Sentinel(ErrCantInput)) {
		Te.Errorf("Expected error %q, got %v", ErrCantInput, err)
	}
}

func TestMissingFilesNoLaunch(Te *testing.T) {
	p := testParams()
	delete(p.Basis, "C")
	prof := Profile{Executable: fakeAbacus(Te, newLayoutLog)}
	dir := Te.TempDir()
	ab := NewAbacusHandle(dir, p, prof)
	_, err := ab.Calculate(context.Background(), testStructure(Te))
	if !errors.Is(err, Sentinel(ErrMissingFiles)) {
		Te.Fatalf("Expected error %q, got %v", ErrMissingFiles, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "omp.txt")); err == nil {
		Te.Error("The program was launched despite the missing orbital")
	}
	p.BasisType = "pw"
	if err := p.Check([]string{"C", "H"}); err != nil {
		Te.Errorf("Plane-wave calculations don't need orbitals: %s", err.Error())
	}
	delete(p.PP, "H")
	if err := p.Check([]string{"C", "H"}); err == nil {
		Te.Error("Missing pseudopotential not detected")
	}
}

func TestParamsCheck(Te *testing.T) {
	p := DefaultParams()
	if err := p.Check([]string{"C", "H", "Ir"}); err != nil {
		Te.Error(err)
	}
	p.Kpts = []int{4, 4}
	if err := p.Check(nil); err == nil {
		Te.Error("2 k-points accepted")
	}
	p = DefaultParams()
	p.Ecutwfc = 0
	if err := p.Check(nil); err == nil {
		Te.Error("Zero cutoff accepted")
	}
	p = DefaultParams()
	p.Extra = map[string]string{"nspin": "2", "init_wfc": "atomic"}
	lines := p.inputLines()
	if l := lines[len(lines)-1]; l[0] != "nspin" || l[1] != "2" {
		Te.Errorf("Extra keys should go at the end, sorted. Got %v", lines[len(lines)-2:])
	}
}

func TestProfile(Te *testing.T) {
	p := NewProfile("abacus", 4, 32)
	if a := strings.Join(p.Argv(), " "); a != "mpirun -np 4 abacus" {
		Te.Errorf("Bad command line %q", a)
	}
	env := p.Env()
	if env[len(env)-1] != "OMP_NUM_THREADS=32" {
		Te.Errorf("OMP_NUM_THREADS not in environment")
	}
	cmd := p.Command(context.Background(), "OUT")
	if cmd.Dir != "OUT" {
		Te.Errorf("Command would run in %q", cmd.Dir)
	}
}

type countingEngine struct {
	calls int
}

func (c *countingEngine) Calculate(ctx context.Context, S *chem.Structure) (*Result, error) {
	c.calls++
	f := v3.Zeros(S.Len())
	return &Result{Energy: S.Coords.At(0, 0), Forces: f}, nil
}

func TestCached(Te *testing.T) {
	eng := &countingEngine{}
	C := NewCached(eng)
	S := testStructure(Te)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := C.Calculate(ctx, S); err != nil {
			Te.Fatal(err)
		}
	}
	S2 := S.Copy()
	S2.Coords.Set(0, 0, 0.5)
	r, err := C.Calculate(ctx, S2)
	if err != nil {
		Te.Fatal(err)
	}
	if r.Energy != 0.5 {
		Te.Errorf("Wrong result for new geometry %f", r.Energy)
	}
	r.Forces.Set(0, 0, 100)
	r, _ = C.Calculate(ctx, S2)
	if r.Forces.At(0, 0) != 0 {
		Te.Error("Cached results can be modified through the returned value")
	}
	calls, hits := C.Stats()
	if eng.calls != 2 || calls != 2 || hits != 3 {
		Te.Errorf("Engine called %d times (%d recorded), %d cache hits. Expected 2 calls and 3 hits", eng.calls, calls, hits)
	}
}
