/*
 * band.go, part of goNEB.
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

package neb

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pkg/errors"
	chem "github.com/rmera/goneb"
	"github.com/rmera/goneb/opt"
	"github.com/rmera/goneb/qm"
	v3 "github.com/rmera/goneb/v3"
	"golang.org/x/sync/errgroup"
)

//ErrNotConverged is returned when a band that didn't reach the force threshold is
//used where a converged band is needed.
var ErrNotConverged = errors.New("the band is not converged")

//Tangent methods.
const (
	ImprovedTangent = "improvedtangent"
	ASENEB          = "aseneb"
)

//Interpolation methods.
const (
	Linear = "linear"
	IDPP   = "idpp"
)

//Options control the behavior of a band.
type Options struct {
	K        float64 //spring constant, eV/A^2
	Climb    bool
	Method   string //tangent method
	Dynamic  bool   //don't move images that are already converged
	Parallel int    //maximum number of images calculated at the same time
	Verbose  bool
}

//DefaultOptions returns the options for a climbing image, improved tangent, dynamic band.
func DefaultOptions() Options {
	return Options{K: 0.1, Climb: true, Method: ImprovedTangent, Dynamic: true, Parallel: 1}
}

//Check returns an error if the options are not valid.
func (o Options) Check() error {
	if o.Method != ImprovedTangent && o.Method != ASENEB {
		return errors.Errorf("unknown tangent method %q", o.Method)
	}
	if o.K <= 0 {
		return errors.Errorf("spring constant must be positive, got %g", o.K)
	}
	if o.Parallel < 1 {
		return errors.Errorf("parallel must be at least 1, got %d", o.Parallel)
	}
	return nil
}

//Image is one geometry in the band.
type Image struct {
	S      *chem.Structure
	Engine qm.Engine //nil for the endpoints
	Result *qm.Result
}

//Band is a chain of images between two fixed endpoints, joined by springs. It implements
//opt.Atoms, where the positions are those of the intermediate images and the forces are
//the nudged elastic band forces.
type Band struct {
	images    []*Image //endpoints included
	opts      Options
	natoms    int
	mask      []float64
	climbing  bool
	fmax      float64 //threshold for the dynamic relaxation
	frozen    []bool
	nebforces [][]float64
	imax      int
	converged bool
}

//NewBand returns a band with n intermediate images between initial and final, whose
//energies and forces are given by ri and rf. The images are copies of initial until the band
//is interpolated. engine(i) returns the engine for the intermediate image i (1 to n).
func NewBand(initial, final *chem.Structure, ri, rf *qm.Result, n int, engine func(i int) qm.Engine, o Options) (*Band, error) {
	if n < 1 {
		return nil, errors.Errorf("a band needs at least one intermediate image, got %d", n)
	}
	if err := o.Check(); err != nil {
		return nil, err
	}
	if err := initial.SameAtoms(final); err != nil {
		return nil, errors.Wrap(err, "the endpoints differ")
	}
	if ri == nil || rf == nil {
		return nil, errors.New("the endpoints need energies and forces")
	}
	B := &Band{opts: o, natoms: initial.Len(), mask: initial.MoveMask(), imax: 1}
	B.images = make([]*Image, n+2)
	B.images[0] = &Image{S: initial.Copy(), Result: ri.Copy()}
	B.images[n+1] = &Image{S: final.Copy(), Result: rf.Copy()}
	for i := 1; i <= n; i++ {
		B.images[i] = &Image{S: initial.Copy(), Engine: engine(i)}
	}
	B.frozen = make([]bool, n+2)
	B.nebforces = make([][]float64, n+2)
	return B, nil
}

//Images returns the images of the band, endpoints included.
func (B *Band) Images() []*Image {
	return B.images
}

//N returns the number of intermediate images.
func (B *Band) N() int {
	return len(B.images) - 2
}

//Options returns the options of the band.
func (B *Band) Options() Options {
	return B.opts
}

//Climbing returns true if the highest-energy image is climbing.
func (B *Band) Climbing() bool {
	return B.climbing
}

//SetClimbing turns the climbing image on or off.
func (B *Band) SetClimbing(c bool) {
	B.climbing = c
	B.converged = false
}

//Converged returns true if the band was relaxed below the force threshold, with climbing
//image if that was requested.
func (B *Band) Converged() bool {
	return B.converged
}

//Positions returns the coordinates of all intermediate images, flattened.
func (B *Band) Positions() []float64 {
	ret := make([]float64, 0, B.N()*B.natoms*3)
	for _, img := range B.images[1 : B.N()+1] {
		ret = append(ret, img.S.Coords.Flat()...)
	}
	return ret
}

//SetPositions sets the free coordinates of the intermediate images. Images that were
//frozen by the dynamic relaxation in the last force evaluation are not moved.
func (B *Band) SetPositions(pos []float64) {
	l := 3 * B.natoms
	for i := 1; i <= B.N(); i++ {
		if B.frozen[i] {
			continue
		}
		img := B.images[i]
		cur := img.S.Coords.Flat()
		p := pos[(i-1)*l : i*l]
		changed := false
		for j, m := range B.mask {
			if m != 0 && cur[j] != p[j] {
				cur[j] = p[j]
				changed = true
			}
		}
		if changed {
			img.S.Coords.SetFlat(cur)
			img.Result = nil
			B.converged = false
		}
	}
}

//setAll sets every coordinate of image i, fixed ones included.
func (B *Band) setAll(i int, coords *v3.Matrix) {
	B.images[i].S.Coords = coords.Copy()
	B.images[i].Result = nil
	B.frozen[i] = false
	B.converged = false
}

//evaluate calculates, concurrently, the images without results.
func (B *Band) evaluate(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(B.opts.Parallel)
	for i := 1; i <= B.N(); i++ {
		img := B.images[i]
		if img.Result != nil {
			continue
		}
		i := i
		g.Go(func() error {
			r, err := img.Engine.Calculate(gctx, img.S)
			if err != nil {
				return errors.Wrapf(err, "image %d", i)
			}
			if B.opts.Verbose {
				log.Printf("image %d: energy %.6f eV", i, r.Energy)
			}
			img.Result = r
			return nil
		})
	}
	return g.Wait()
}

//Energies returns the energies of all images, endpoints included. Images that
//have not been calculated have zero energy.
func (B *Band) Energies() []float64 {
	ret := make([]float64, len(B.images))
	for i, img := range B.images {
		if img.Result != nil {
			ret[i] = img.Result.Energy
		}
	}
	return ret
}

//Energy returns the highest energy among the intermediate images.
func (B *Band) Energy(ctx context.Context) (float64, error) {
	if err := B.evaluate(ctx); err != nil {
		return 0, err
	}
	e := B.Energies()
	return e[B.highest(e)], nil
}

//highest returns the index of the intermediate image with the highest energy.
func (B *Band) highest(e []float64) int {
	imax := 1
	for i := 2; i <= B.N(); i++ {
		if e[i] > e[imax] {
			imax = i
		}
	}
	return imax
}

//Highest returns the index of the highest energy intermediate image, which is the
//climbing image when climbing is on.
func (B *Band) Highest() int {
	return B.highest(B.Energies())
}

//Forces calculates the images that need it, and returns the NEB forces on the intermediate
//images, flattened.
func (B *Band) Forces(ctx context.Context) ([]float64, error) {
	if err := B.evaluate(ctx); err != nil {
		return nil, err
	}
	B.imax = B.highest(B.Energies())
	B.nebForces()
	ret := make([]float64, 0, B.N()*B.natoms*3)
	for i := 1; i <= B.N(); i++ {
		f := B.nebforces[i]
		B.frozen[i] = false
		if B.opts.Dynamic && B.fmax > 0 && opt.MaxForce(f) < B.fmax {
			B.frozen[i] = true
			f = make([]float64, len(f))
		}
		ret = append(ret, f...)
	}
	return ret, nil
}

//Relax optimizes the band with O until the largest NEB force is below fmax. If the band
//climbs, and climbFmax is larger than fmax, the band is first relaxed without climbing
//until climbFmax, and the climbing image is switched on afterwards.
func (B *Band) Relax(ctx context.Context, O opt.Optimizer, fmax, climbFmax float64, steps int) error {
	B.fmax = fmax
	B.converged = false
	if B.opts.Climb && climbFmax > fmax {
		B.climbing = false
		if err := O.Run(ctx, B, climbFmax, steps); err != nil {
			return errors.Wrap(err, "relaxing the band before climbing")
		}
		if B.opts.Verbose {
			log.Printf("Band below %.3f eV/A, image %d starts climbing", climbFmax, B.Highest())
		}
	}
	B.climbing = B.opts.Climb
	if err := O.Run(ctx, B, fmax, steps); err != nil {
		return errors.Wrap(err, "relaxing the band")
	}
	B.converged = true
	return nil
}

//String returns a one-line summary of the band energies.
func (B *Band) String() string {
	e := B.Energies()
	s := make([]string, len(e))
	for i, v := range e {
		s[i] = fmt.Sprintf("%.4f", v-e[0])
	}
	return "[" + strings.Join(s, " ") + "]"
}
