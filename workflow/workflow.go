/*
 * workflow.go, part of goNEB.
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

//Package workflow drives a complete NEB calculation: it loads the endpoints, relaxes
//them, relaxes the band, and reports the barrier. The stages run strictly in order,
//and each expensive one is checkpointed so an interrupted run can be resumed.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	chem "github.com/rmera/goneb"
	"github.com/rmera/goneb/config"
	"github.com/rmera/goneb/neb"
	"github.com/rmera/goneb/opt"
	"github.com/rmera/goneb/qm"
	"github.com/rmera/goneb/traj"
	v3 "github.com/rmera/goneb/v3"
)

//EngineFactory returns the engine that will run the calculations in the directory dir.
type EngineFactory func(dir string) qm.Engine

//Workflow is one NEB run.
type Workflow struct {
	cfg       config.Config
	newEngine EngineFactory
	fresh     bool
	verbose   bool
	out       io.Writer
	g         graph.Graph[string, string]
	status    map[string]Status
	state     State
	ckpt      *checkpoint
	engines   []*qm.Cached

	initial, final *chem.Structure
	ri, rf         *qm.Result
	path           *neb.Path
	barriers       *neb.Barriers
	fit            *neb.Fit
}

//Option modifies a Workflow.
type Option func(*Workflow)

//WithEngine sets the engine factory. By default, ABACUS is run with the configured profile.
func WithEngine(f EngineFactory) Option {
	return func(W *Workflow) { W.newEngine = f }
}

//WithFresh makes the workflow ignore and overwrite any previous checkpoint.
func WithFresh(fresh bool) Option {
	return func(W *Workflow) { W.fresh = fresh }
}

//WithVerbose turns on the logging of engine runs and optimizer steps.
func WithVerbose(v bool) Option {
	return func(W *Workflow) { W.verbose = v }
}

//WithOutput sets where the report is written, os.Stdout by default.
func WithOutput(w io.Writer) Option {
	return func(W *Workflow) { W.out = w }
}

//New returns a workflow for cfg, which is checked and copied.
func New(cfg *config.Config, options ...Option) (*Workflow, error) {
	if err := cfg.Check(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	g, err := stageGraph()
	if err != nil {
		return nil, err
	}
	W := &Workflow{cfg: *cfg, out: os.Stdout, g: g, status: make(map[string]Status)}
	W.newEngine = W.abacus
	for _, o := range options {
		o(W)
	}
	return W, nil
}

func (W *Workflow) abacus(dir string) qm.Engine {
	h := qm.NewAbacusHandle(dir, W.cfg.Engine, W.cfg.Profile())
	h.Verbose = W.verbose
	return h
}

//engine returns a cached engine for dir.
func (W *Workflow) engine(dir string) qm.Engine {
	c := qm.NewCached(W.newEngine(dir))
	W.engines = append(W.engines, c)
	return c
}

func (W *Workflow) logV(format string, a ...interface{}) {
	if W.verbose {
		log.Printf(format, a...)
	}
}

//Stages returns the names of the stages, in the order they run.
func (W *Workflow) Stages() ([]string, error) {
	return order(W.g)
}

//Status returns the status of the stage.
func (W *Workflow) Status(stage string) Status {
	return W.status[stage]
}

//State returns the current state of the workflow.
func (W *Workflow) State() State {
	return W.state
}

//DOT writes the stage graph, colored by status, in the DOT format.
func (W *Workflow) DOT(w io.Writer) error {
	return dot(W.g, w)
}

//EngineStats returns the number of engine calculations requested, and how many of them
//were answered from the cache.
func (W *Workflow) EngineStats() (calls, hits int) {
	for _, e := range W.engines {
		c, h := e.Stats()
		calls += c
		hits += h
	}
	return calls, hits
}

//Barriers returns the barriers obtained by the report stage, or nil.
func (W *Workflow) Barriers() *neb.Barriers {
	return W.barriers
}

//Path returns the converged path, or nil.
func (W *Workflow) Path() *neb.Path {
	return W.path
}

func (W *Workflow) setStatus(stage string, s Status) {
	W.status[stage] = s
	if err := setStatus(W.g, stage, s); err != nil {
		log.Printf("can't update status of stage %s: %v", stage, err)
	}
}

//Run executes the stages in order. Unless the workflow is fresh, the stages completed in
//a previous run are restored from the checkpoint, up to the first one that isn't.
func (W *Workflow) Run(ctx context.Context) error {
	var err error
	W.ckpt = new(checkpoint)
	if !W.fresh {
		if W.ckpt, err = readCheckpoint(W.cfg.Paths.Checkpoint); err != nil {
			return err
		}
	}
	stages, err := order(W.g)
	if err != nil {
		return errors.Wrap(err, "sorting stages")
	}
	run := map[string]func(context.Context, bool) (bool, error){
		StageLoad:         W.load,
		StageRelaxInitial: W.relaxInitial,
		StageRelaxFinal:   W.relaxFinal,
		StageNEB:          W.neb,
		StageReport:       W.report,
	}
	resume := !W.fresh
	for _, s := range stages {
		W.state = stageState[s]
		W.setStatus(s, Running)
		log.Printf("Stage %s", s)
		resumed, err := run[s](ctx, resume && W.ckpt.done(s))
		if err != nil {
			W.setStatus(s, Failed)
			return errors.Wrapf(err, "stage %s", s)
		}
		if resumed {
			log.Printf("Stage %s restored from checkpoint", s)
			W.setStatus(s, Resumed)
			continue
		}
		if s != StageLoad {
			resume = false
		}
		W.setStatus(s, Done)
	}
	W.state = Finished
	return nil
}

//load reads both endpoints and checks that the engine has files for all their elements.
//Nothing is launched if this fails.
func (W *Workflow) load(ctx context.Context, _ bool) (bool, error) {
	var err error
	if W.initial, err = chem.STRURead(W.cfg.Paths.InitStru); err != nil {
		return false, errors.Wrap(err, "initial structure")
	}
	if W.final, err = chem.STRURead(W.cfg.Paths.FinalStru); err != nil {
		return false, errors.Wrap(err, "final structure")
	}
	if err := W.initial.SameAtoms(W.final); err != nil {
		return false, errors.Wrap(err, "initial and final structures")
	}
	if err := W.cfg.Engine.Check(W.initial.Elements()); err != nil {
		return false, err
	}
	W.logV("Loaded %d atoms, elements %v", W.initial.Len(), W.initial.Elements())
	return false, nil
}

func (W *Workflow) relaxInitial(ctx context.Context, resume bool) (bool, error) {
	var err error
	if resume {
		W.initial, W.ri, err = W.loadEndpoint(StageRelaxInitial, W.initial)
		return err == nil, err
	}
	W.initial, W.ri, err = W.relax(ctx, StageRelaxInitial, W.initial, W.cfg.Paths.InitDir, W.cfg.Paths.InitTraj)
	return false, err
}

func (W *Workflow) relaxFinal(ctx context.Context, resume bool) (bool, error) {
	var err error
	if resume {
		W.final, W.rf, err = W.loadEndpoint(StageRelaxFinal, W.final)
		return err == nil, err
	}
	W.final, W.rf, err = W.relax(ctx, StageRelaxFinal, W.final, W.cfg.Paths.FinalDir, W.cfg.Paths.FinalTraj)
	return false, err
}

//relax optimizes a copy of S in dir, writing every step to trajname, and checkpoints the result.
func (W *Workflow) relax(ctx context.Context, stage string, S *chem.Structure, dir, trajname string) (*chem.Structure, *qm.Result, error) {
	R := opt.NewRelaxable(S.Copy(), W.engine(dir))
	tw, err := traj.NewWriter(trajname)
	if err != nil {
		return nil, nil, err
	}
	defer tw.Close()
	steps := 0
	write := func(s *opt.Step) error {
		steps = s.N
		frame := R.S.Copy()
		frame.Coords.SetFlat(s.Positions)
		forces, err := v3.NewMatrix(s.Forces)
		if err != nil {
			return err
		}
		return tw.Write(frame, s.Energy, forces, map[string]string{"step": strconv.Itoa(s.N)})
	}
	O, err := opt.New(W.cfg.Run.RelaxOptimizer, W.verbose, write)
	if err != nil {
		return nil, nil, err
	}
	if err := O.Run(ctx, R, W.cfg.Run.Fmax, W.cfg.Run.RelaxSteps); err != nil {
		return nil, nil, err
	}
	r, err := R.Calculate(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, nil, err
	}
	log.Printf("%s converged in %d steps, energy %.6f eV", stage, steps, r.Energy)
	return R.S, r, W.saveEndpoint(stage, R.S, r, steps)
}

//neb builds, interpolates and relaxes the band.
func (W *Workflow) neb(ctx context.Context, resume bool) (bool, error) {
	ckname := filepath.Join(W.cfg.Paths.Checkpoint, bandTrajFile)
	if resume {
		frames, err := traj.ReadAll(ckname)
		if err != nil {
			return false, errors.Wrap(err, "reading band checkpoint")
		}
		if W.path, err = neb.PathFromFrames(frames); err != nil {
			return false, errors.Wrap(err, "reading band checkpoint")
		}
		return true, nil
	}
	run := W.cfg.Run
	engine := func(i int) qm.Engine {
		return W.engine(filepath.Join(W.cfg.Paths.NEBDir, fmt.Sprintf("image-%02d", i)))
	}
	B, err := neb.NewBand(W.initial, W.final, W.ri, W.rf, run.NMax, engine, W.cfg.NEBOptions(W.verbose))
	if err != nil {
		return false, err
	}
	if err := B.Interpolate(ctx, run.Interpolate); err != nil {
		return false, errors.Wrap(err, "interpolating the band")
	}
	tw, err := traj.NewWriter(W.cfg.Paths.NEBTraj)
	if err != nil {
		return false, err
	}
	defer tw.Close()
	//the optimizer may have moved the band to a trial point since the step.
	write := func(s *opt.Step) error {
		B.SetPositions(s.Positions)
		if _, err := B.Forces(ctx); err != nil {
			return err
		}
		W.logV("NEB step %d: %s, climbing: %t", s.N, B, B.Climbing())
		return writeBand(tw, B, s.N)
	}
	O, err := opt.New(run.NEBOptimizer, W.verbose, write)
	if err != nil {
		return false, err
	}
	if err := B.Relax(ctx, O, run.Fmax, run.ClimbFmax, run.NEBSteps); err != nil {
		return false, err
	}
	if err := writeBand(tw, B, -1); err != nil {
		return false, err
	}
	if err := tw.Close(); err != nil {
		return false, err
	}
	if W.path, err = B.Path(); err != nil {
		return false, err
	}
	ck, err := traj.NewWriter(ckname)
	if err != nil {
		return false, err
	}
	if err := writeBand(ck, B, -1); err != nil {
		ck.Close()
		return false, err
	}
	if err := ck.Close(); err != nil {
		return false, err
	}
	W.ckpt.complete(StageNEB)
	return false, W.ckpt.write(W.cfg.Paths.Checkpoint)
}

//writeBand appends all the images of B to tw. A negative step marks the final band.
func writeBand(tw *traj.Writer, B *neb.Band, step int) error {
	for i, img := range B.Images() {
		if img.Result == nil {
			continue
		}
		info := map[string]string{
			neb.InfoImage:     strconv.Itoa(i),
			neb.InfoConverged: strconv.FormatBool(B.Converged()),
		}
		if step >= 0 {
			info["step"] = strconv.Itoa(step)
		}
		if err := tw.Write(img.S, img.Result.Energy, img.Result.Forces, info); err != nil {
			return err
		}
	}
	return nil
}
