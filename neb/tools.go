/*
 * tools.go, part of goNEB.
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
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rmera/goneb/traj"
	v3 "github.com/rmera/goneb/v3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

//points of the fitted curve between two images.
const fitPoints = 20

//Path contains what is needed to analyze a band: the coordinates, energies and
//forces of each image, endpoints included.
type Path struct {
	Coords    []*v3.Matrix
	Energies  []float64
	Forces    []*v3.Matrix //true forces, 0 for the components that can't move.
	Converged bool
}

//Path returns the current state of the band, for analysis. The images must have been calculated.
func (B *Band) Path() (*Path, error) {
	P := &Path{Converged: B.converged}
	for i, img := range B.images {
		if img.Result == nil {
			return nil, errors.Errorf("image %d has not been calculated", i)
		}
		P.Coords = append(P.Coords, img.S.Coords.Copy())
		P.Energies = append(P.Energies, img.Result.Energy)
		f := img.Result.Forces.Flat()
		for j, m := range B.mask {
			f[j] *= m
		}
		fm, _ := v3.NewMatrix(f)
		P.Forces = append(P.Forces, fm)
	}
	return P, nil
}

//Frames info keys for band trajectories.
const (
	InfoImage     = "image"
	InfoConverged = "converged"
)

//PathFromFrames rebuilds a path from trajectory frames. The frames of the last band in the
//slice are used, that is, the frames from the last one with image=0 on. Each frame must
//contain forces, and the converged flag is taken from the frames.
func PathFromFrames(frames []*traj.Frame) (*Path, error) {
	start := -1
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Info[InfoImage] == "0" {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, errors.New("no band (frames with image=0) in the trajectory")
	}
	band := frames[start:]
	if len(band) < 3 {
		return nil, errors.Errorf("the last band has only %d images", len(band))
	}
	P := &Path{Converged: true}
	for i, F := range band {
		if F.Info[InfoImage] != strconv.Itoa(i) {
			return nil, errors.Errorf("expected image %d, found %q", i, F.Info[InfoImage])
		}
		if F.Forces == nil {
			return nil, errors.Errorf("image %d has no forces", i)
		}
		c, _ := strconv.ParseBool(F.Info[InfoConverged])
		P.Converged = P.Converged && c
		P.Coords = append(P.Coords, F.Coords)
		P.Energies = append(P.Energies, F.Energy)
		P.Forces = append(P.Forces, F.Forces)
	}
	return P, nil
}

//Fit is the energy profile along the path, relative to the energy of the first image.
type Fit struct {
	S      []float64 //reaction coordinate for each image, A
	E      []float64 //energy of each image, eV
	Slopes []float64 //dE/ds for each image, from the forces
	SFit   []float64
	EFit   []float64 //cubic interpolation of E
}

//Fit returns the energy profile. The reaction coordinate is the accumulated distance
//between images, and the curve is the cubic Hermite interpolation built from the energies
//and the force components along the path.
func (P *Path) Fit() (*Fit, error) {
	n := len(P.Coords)
	if n < 2 || len(P.Energies) != n || len(P.Forces) != n {
		return nil, errors.New("inconsistent path")
	}
	R := make([][]float64, n)
	for i, c := range P.Coords {
		R[i] = c.Flat()
	}
	F := &Fit{S: make([]float64, n), E: make([]float64, n), Slopes: make([]float64, n)}
	for i := 0; i < n; i++ {
		F.E[i] = P.Energies[i] - P.Energies[0]
		if i > 0 {
			ds := floats.Distance(R[i], R[i-1], 2)
			if ds == 0 {
				return nil, errors.Errorf("images %d and %d are identical", i-1, i)
			}
			F.S[i] = F.S[i-1] + ds
		}
		dir := make([]float64, len(R[i]))
		switch i {
		case 0:
			floats.SubTo(dir, R[1], R[0])
		case n - 1:
			floats.SubTo(dir, R[n-1], R[n-2])
		default:
			floats.SubTo(dir, R[i+1], R[i-1])
		}
		norm := floats.Norm(dir, 2)
		if norm == 0 {
			return nil, errors.Errorf("no direction for image %d", i)
		}
		F.Slopes[i] = -floats.Dot(P.Forces[i].Flat(), dir) / norm
	}
	var pc interp.PiecewiseCubic
	pc.FitWithDerivatives(F.S, F.E, F.Slopes)
	for i := 0; i < n-1; i++ {
		for j := 0; j < fitPoints; j++ {
			s := F.S[i] + (F.S[i+1]-F.S[i])*float64(j)/fitPoints
			F.SFit = append(F.SFit, s)
			F.EFit = append(F.EFit, pc.Predict(s))
		}
	}
	F.SFit = append(F.SFit, F.S[n-1])
	F.EFit = append(F.EFit, F.E[n-1])
	return F, nil
}

//Barriers contains the energetics of the reaction, in eV.
type Barriers struct {
	Forward    float64 //highest image energy minus the initial energy
	Reverse    float64 //highest image energy minus the final energy
	Reaction   float64 //final minus initial energy
	ForwardFit float64 //as Forward, but using the maximum of the fitted curve
	ReverseFit float64
	Saddle     int     //index of the highest energy image
	SaddleS    float64 //reaction coordinate of the maximum of the fitted curve
	Initial    float64 //absolute energy of the initial image
}

//Barrier returns the barriers of a path. It returns ErrNotConverged if
//the path is not converged.
func (P *Path) Barrier() (*Barriers, error) {
	if !P.Converged {
		return nil, ErrNotConverged
	}
	F, err := P.Fit()
	if err != nil {
		return nil, err
	}
	B := &Barriers{Initial: P.Energies[0]}
	n := len(F.E)
	B.Saddle = floats.MaxIdx(F.E)
	B.Forward = F.E[B.Saddle]
	B.Reaction = F.E[n-1]
	B.Reverse = B.Forward - B.Reaction
	imax := floats.MaxIdx(F.EFit)
	B.ForwardFit = math.Max(F.EFit[imax], B.Forward)
	if F.EFit[imax] >= B.Forward {
		B.SaddleS = F.SFit[imax]
	} else {
		B.SaddleS = F.S[B.Saddle]
	}
	B.ReverseFit = B.ForwardFit - B.Reaction
	return B, nil
}

//Barrier returns the barriers for the band, which must be converged.
func (B *Band) Barrier() (*Barriers, error) {
	if !B.converged {
		return nil, ErrNotConverged
	}
	P, err := B.Path()
	if err != nil {
		return nil, err
	}
	return P.Barrier()
}

//String returns a summary of the barriers.
func (b *Barriers) String() string {
	return fmt.Sprintf("Forward barrier: %.4f eV (fit %.4f eV), reverse barrier: %.4f eV (fit %.4f eV), reaction energy: %.4f eV, highest image: %d",
		b.Forward, b.ForwardFit, b.Reverse, b.ReverseFit, b.Reaction, b.Saddle)
}
