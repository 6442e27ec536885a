/*
 * report.go, part of goNEB.
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

package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rmera/goneb/chemplot"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(24)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
)

//report obtains the barrier from the converged path, plots it and prints the summary.
func (W *Workflow) report(ctx context.Context, _ bool) (bool, error) {
	var err error
	if W.path == nil {
		return false, errors.New("no path to report")
	}
	if W.barriers, err = W.path.Barrier(); err != nil {
		return false, err
	}
	if W.fit, err = W.path.Fit(); err != nil {
		return false, err
	}
	if W.cfg.Paths.Plot != "" {
		if err := chemplot.BandPlot(W.fit, "NEB energy profile", W.cfg.Paths.Plot); err != nil {
			return false, errors.Wrap(err, "plotting the band")
		}
	}
	W.ckpt.Barrier = W.barriers.Forward
	if err := W.ckpt.write(W.cfg.Paths.Checkpoint); err != nil {
		return false, err
	}
	fmt.Fprintln(W.out, W.Report())
	return false, nil
}

//Report returns the summary of the results, or an empty string if there are none yet.
func (W *Workflow) Report() string {
	b := W.barriers
	if b == nil {
		return ""
	}
	row := func(label, format string, a ...interface{}) string {
		return labelStyle.Render(label) + valueStyle.Render(fmt.Sprintf(format, a...))
	}
	lines := []string{
		titleStyle.Render("NEB results"),
		row("Forward barrier", "%.4f eV", b.Forward),
		row("Forward barrier (fit)", "%.4f eV", b.ForwardFit),
		row("Reverse barrier", "%.4f eV", b.Reverse),
		row("Reverse barrier (fit)", "%.4f eV", b.ReverseFit),
		row("Reaction energy", "%.4f eV", b.Reaction),
		row("Highest image", "%d of %d", b.Saddle, len(W.path.Energies)-1),
		row("Initial energy", "%.6f eV", b.Initial),
	}
	if W.cfg.Paths.Plot != "" {
		lines = append(lines, row("Plot", "%s", W.cfg.Paths.Plot))
	}
	if calls, hits := W.EngineStats(); calls > 0 {
		lines = append(lines, row("Engine runs", "%d (%d cached)", calls-hits, hits))
	}
	if W.fit != nil {
		lines = append(lines, graphStyle.Render(chemplot.BandASCII(W.fit, 60, 12)))
	}
	return strings.Join(lines, "\n")
}
