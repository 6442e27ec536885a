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

package chemplot

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/rmera/goneb/neb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

//BandPlot plots the energy profile in fit: the fitted curve as a line and each image as a
//point, colored from the initial (blue) to the final (red) state. The format is given by the
//extension of filename (png, svg, pdf...).
func BandPlot(fit *neb.Fit, title, filename string) error {
	if fit == nil || len(fit.S) == 0 {
		return fmt.Errorf("BandPlot: no data to plot")
	}
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = "Reaction coordinate (A)"
	p.Y.Label.Text = "Energy (eV)"
	p.Add(plotter.NewGrid())
	curve := make(plotter.XYs, len(fit.SFit))
	for i := range fit.SFit {
		curve[i].X = fit.SFit[i]
		curve[i].Y = fit.EFit[i]
	}
	l, err := plotter.NewLine(curve)
	if err != nil {
		return err
	}
	l.LineStyle.Width = vg.Points(1.5)
	p.Add(l)
	temp := make(plotter.XYs, 1)
	for i := range fit.S {
		temp[0].X = fit.S[i]
		temp[0].Y = fit.E[i]
		s, err := plotter.NewScatter(temp)
		if err != nil {
			return err
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(4)
		s.GlyphStyle.Color = colors(i, len(fit.S))
		p.Add(s)
	}
	b := fitMax(fit) - fit.E[0]
	p.Legend.Add(fmt.Sprintf("Barrier: %.3f eV", b), l)
	p.Legend.Top = true
	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}

func fitMax(fit *neb.Fit) float64 {
	max := math.Inf(-1)
	for _, v := range fit.EFit {
		max = math.Max(max, v)
	}
	for _, v := range fit.E {
		max = math.Max(max, v)
	}
	return max
}

//BandASCII returns the energy profile in fit as a text plot, for terminals.
func BandASCII(fit *neb.Fit, width, height int) string {
	if fit == nil || len(fit.EFit) == 0 {
		return ""
	}
	graph := asciigraph.Plot(fit.EFit,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("Energy (eV) along the path, %.2f A. Barrier %.3f eV", fit.S[len(fit.S)-1], fitMax(fit)-fit.E[0])),
	)
	return strings.TrimRight(graph, "\n")
}
