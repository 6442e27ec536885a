/*
 * opt.go, part of goNEB.
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

//Package opt contains geometry optimizers that work on anything that gives
//energies and forces for a set of positions: a structure calculated with a QM
//engine, or a whole nudged elastic band.
package opt

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/pkg/errors"
)

//ErrNotConverged is returned when an optimizer exhausts its steps before the
//largest force goes below the threshold.
var ErrNotConverged = errors.New("optimization did not converge")

//Atoms is a system that can be optimized. Positions and forces are flat slices, with
//3 consecutive elements per atom. Forces on components that can't move must be zero.
type Atoms interface {
	Positions() []float64
	SetPositions(pos []float64)
	Forces(ctx context.Context) ([]float64, error)
	Energy(ctx context.Context) (float64, error)
}

//Step is the state of the system at one optimization step. Positions and Forces
//are copies, they belong to the same geometry as Energy.
type Step struct {
	N         int
	Energy    float64
	Fmax      float64
	Positions []float64
	Forces    []float64
	Final     bool //the geometry the optimizer returns
}

//Observer is called after the energy and forces for each step are obtained,
//before the convergence check. A non-nil error stops the optimization.
type Observer func(s *Step) error

//Optimizer moves atoms until the largest force on any atom is strictly smaller
//than fmax, or steps steps have been performed.
type Optimizer interface {
	Run(ctx context.Context, atoms Atoms, fmax float64, steps int) error
	Name() string
}

//Names of the available optimizers.
const (
	NameFIRE        = "FIRE"
	NameBFGS        = "BFGS"
	NameLBFGS       = "LBFGS"
	NameQuasiNewton = "QuasiNewton"
)

//New returns the optimizer with the given name (case insensitive), with default
//settings, which will call the given observers after each step.
func New(name string, verbose bool, obs ...Observer) (Optimizer, error) {
	switch strings.ToLower(name) {
	case "fire":
		F := NewFIRE()
		F.Observers = obs
		F.Verbose = verbose
		return F, nil
	case "bfgs", "lbfgs", "quasinewton":
		G, _ := NewGonum(name)
		G.Observers = obs
		G.Verbose = verbose
		return G, nil
	}
	return nil, errors.Errorf("unknown optimizer %q", name)
}

//Known returns true if name is the name of an available optimizer.
func Known(name string) bool {
	_, err := New(name, false)
	return err == nil
}

//MaxForce returns the largest norm of the 3-component vectors in f.
//It returns +Inf if any component is NaN, so such forces never converge.
func MaxForce(f []float64) float64 {
	max := 0.0
	for i := 0; i+2 < len(f); i += 3 {
		n := math.Sqrt(f[i]*f[i] + f[i+1]*f[i+1] + f[i+2]*f[i+2])
		if math.IsNaN(n) {
			return math.Inf(1)
		}
		if n > max {
			max = n
		}
	}
	return max
}

func logStep(name string, step int, energy, fmax float64) {
	log.Printf("%s: %4d  %15.6f  %10.4f", name, step, energy, fmax)
}

//notify passes s to every observer, stopping at the first error.
func notify(obs []Observer, s *Step) error {
	for _, o := range obs {
		if err := o(s); err != nil {
			return err
		}
	}
	return nil
}

func notConverged(name string, fmax, target float64, steps int) error {
	return errors.Wrap(ErrNotConverged, fmt.Sprintf("%s: fmax %.4f > %.4f after %d steps", name, fmax, target, steps))
}

//iterate is the loop for optimizers that only need the forces at the current
//positions to take a step.
func iterate(ctx context.Context, name string, atoms Atoms, fmax float64, steps int, verbose bool, obs []Observer, step func(f []float64)) error {
	if fmax <= 0 {
		return errors.Errorf("%s: fmax must be positive, got %g", name, fmax)
	}
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%s: step %d", name, i)
		}
		f, err := atoms.Forces(ctx)
		if err != nil {
			return errors.Wrapf(err, "%s: step %d", name, i)
		}
		e, err := atoms.Energy(ctx)
		if err != nil {
			return errors.Wrapf(err, "%s: step %d", name, i)
		}
		fm := MaxForce(f)
		if verbose {
			logStep(name, i, e, fm)
		}
		if err := notify(obs, &Step{N: i, Energy: e, Fmax: fm, Positions: atoms.Positions(), Forces: append([]float64(nil), f...), Final: fm < fmax}); err != nil {
			return errors.Wrapf(err, "%s: step %d", name, i)
		}
		if fm < fmax {
			return nil
		}
		if i >= steps {
			return notConverged(name, fm, fmax, steps)
		}
		step(f)
	}
}
