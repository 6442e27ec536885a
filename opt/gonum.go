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

package opt

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize"
)

//Gonum relaxes atoms with the quasi-Newton methods in gonum's optimize package,
//using the energy as the objective function and minus the forces as its gradient.
//The convergence criterion is the same as FIRE's, checked on the final geometry.
type Gonum struct {
	name      string
	Observers []Observer
	Verbose   bool
}

//NewGonum returns an optimizer for the method name: BFGS (with backtracking line search),
//QuasiNewton (BFGS with a More-Thuente line search) or LBFGS.
func NewGonum(name string) (*Gonum, error) {
	for _, v := range []string{NameBFGS, NameLBFGS, NameQuasiNewton} {
		if strings.EqualFold(v, name) {
			return &Gonum{name: v}, nil
		}
	}
	return nil, errors.Errorf("no gonum method for %q", name)
}

//Name returns the name of the method
func (G *Gonum) Name() string { return G.name }

func (G *Gonum) method() optimize.Method {
	switch G.name {
	case NameBFGS:
		return &optimize.BFGS{Linesearcher: &optimize.Backtracking{}}
	case NameLBFGS:
		return &optimize.LBFGS{Store: 30}
	default:
		return &optimize.BFGS{Linesearcher: &optimize.MoreThuente{}}
	}
}

//fmaxConverger stops the optimization when the gradient has no atomic component
//larger than fmax, or if an evaluation failed.
type fmaxConverger struct {
	fmax   float64
	failed *error
}

func (c *fmaxConverger) Init(dim int) {}

func (c *fmaxConverger) Converged(loc *optimize.Location) optimize.Status {
	if *c.failed != nil {
		return optimize.Failure
	}
	if loc.Gradient != nil && MaxForce(loc.Gradient) < c.fmax {
		return optimize.GradientThreshold
	}
	return optimize.NotTerminated
}

//stepRecorder passes every major iteration to the observers. The step is built from
//the iterate itself, not from the last line search evaluation.
type stepRecorder struct {
	G      *Gonum
	failed *error
}

func (r *stepRecorder) Init() error { return nil }

func (r *stepRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if *r.failed != nil {
		return *r.failed
	}
	if op&(optimize.InitIteration|optimize.MajorIteration) == 0 || loc.Gradient == nil {
		return nil
	}
	s := &Step{N: stats.MajorIterations, Energy: loc.F, Positions: append([]float64(nil), loc.X...), Forces: make([]float64, len(loc.Gradient))}
	for i, g := range loc.Gradient {
		s.Forces[i] = -g
	}
	s.Fmax = MaxForce(s.Forces)
	if r.G.Verbose {
		logStep(r.G.name, s.N, s.Energy, s.Fmax)
	}
	return notify(r.G.Observers, s)
}

//Run relaxes atoms until the largest atomic force is smaller than fmax, or steps
//iterations are done.
func (G *Gonum) Run(ctx context.Context, atoms Atoms, fmax float64, steps int) error {
	if fmax <= 0 {
		return errors.Errorf("%s: fmax must be positive, got %g", G.name, fmax)
	}
	//gonum takes 0 iterations as no limit.
	if steps < 1 {
		return errors.Errorf("%s: steps must be at least 1, got %d", G.name, steps)
	}
	var evalErr error
	fail := func(err error) {
		if evalErr == nil {
			evalErr = err
		}
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			atoms.SetPositions(x)
			e, err := atoms.Energy(ctx)
			if err != nil {
				fail(err)
				return math.Inf(1)
			}
			return e
		},
		Grad: func(grad, x []float64) {
			for i := range grad {
				grad[i] = 0
			}
			if evalErr != nil {
				return
			}
			atoms.SetPositions(x)
			f, err := atoms.Forces(ctx)
			if err != nil {
				fail(err)
				return
			}
			if math.IsInf(MaxForce(f), 1) {
				fail(errors.Errorf("non-finite forces at %v", x))
				return
			}
			for i := range grad {
				grad[i] = -f[i]
			}
		},
	}
	settings := &optimize.Settings{
		MajorIterations: steps,
		Converger:       &fmaxConverger{fmax: fmax, failed: &evalErr},
		Recorder:        &stepRecorder{G: G, failed: &evalErr},
	}
	res, err := optimize.Minimize(problem, atoms.Positions(), settings, G.method())
	if evalErr != nil {
		return errors.Wrap(evalErr, G.name)
	}
	if res == nil {
		return errors.Wrap(err, G.name)
	}
	//the last evaluation may not be at the best point.
	atoms.SetPositions(res.X)
	f, ferr := atoms.Forces(ctx)
	if ferr != nil {
		return errors.Wrap(ferr, G.name)
	}
	e, ferr := atoms.Energy(ctx)
	if ferr != nil {
		return errors.Wrap(ferr, G.name)
	}
	fm := MaxForce(f)
	final := &Step{N: res.MajorIterations, Energy: e, Fmax: fm, Positions: atoms.Positions(), Forces: f, Final: fm < fmax}
	if oerr := notify(G.Observers, final); oerr != nil {
		return errors.Wrap(oerr, G.name)
	}
	if fm >= fmax {
		if err != nil {
			return errors.Wrapf(notConverged(G.name, fm, fmax, res.MajorIterations), "%s", err.Error())
		}
		return notConverged(G.name, fm, fmax, res.MajorIterations)
	}
	return nil
}
