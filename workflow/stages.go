/*
 * stages.go, part of goNEB.
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
	"io"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1"
)

//Stage names, in execution order.
const (
	StageLoad         = "load"
	StageRelaxInitial = "relax-initial"
	StageRelaxFinal   = "relax-final"
	StageNEB          = "neb"
	StageReport       = "report"
)

//Status of a stage.
type Status int

const (
	Pending Status = iota
	Running
	Done
	Resumed //restored from a checkpoint
	Failed
)

func (s Status) String() string {
	return [...]string{"pending", "running", "done", "resumed", "failed"}[s]
}

//rgb is the color for each status, in the DOT graph.
var rgb = map[Status][3]uint8{
	Pending: {190, 190, 190},
	Running: {240, 200, 0},
	Done:    {0, 170, 80},
	Resumed: {60, 120, 230},
	Failed:  {220, 0, 0},
}

func (s Status) color() string {
	c := rgb[s]
	col, err := colors.RGB(c[0], c[1], c[2])
	if err != nil {
		return "black"
	}
	return col.ToHEX().String()
}

//State is the overall state of a workflow.
type State int

const (
	NotStarted State = iota
	RelaxingInitial
	RelaxingFinal
	RunningNEB
	Reporting
	Finished
)

func (s State) String() string {
	return [...]string{"not started", "relaxing initial", "relaxing final", "running NEB", "reporting", "done"}[s]
}

//stageState is the workflow state while each stage runs.
var stageState = map[string]State{
	StageLoad:         NotStarted,
	StageRelaxInitial: RelaxingInitial,
	StageRelaxFinal:   RelaxingFinal,
	StageNEB:          RunningNEB,
	StageReport:       Reporting,
}

//stageGraph returns the dependency graph of the stages. Every stage depends on the previous one.
func stageGraph() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic())
	names := []string{StageLoad, StageRelaxInitial, StageRelaxFinal, StageNEB, StageReport}
	for _, n := range names {
		if err := g.AddVertex(n, graph.VertexAttribute("style", "filled"), graph.VertexAttribute("fillcolor", Pending.color())); err != nil {
			return nil, errors.Wrap(err, "unable to add vertex")
		}
	}
	for i := 1; i < len(names); i++ {
		if err := g.AddEdge(names[i-1], names[i]); err != nil {
			return nil, errors.Wrapf(err, "unable to add edge from %s to %s", names[i-1], names[i])
		}
	}
	return g, nil
}

//order returns the stages in the order they have to run.
func order(g graph.Graph[string, string]) ([]string, error) {
	return graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
}

//setStatus colors the stage in the graph.
func setStatus(g graph.Graph[string, string], stage string, s Status) error {
	_, properties, err := g.VertexWithProperties(stage)
	if err != nil {
		return errors.Wrap(err, "unable to get vertex properties")
	}
	properties.Attributes["fillcolor"] = s.color()
	properties.Attributes["xlabel"] = s.String()
	return nil
}

//dot writes the graph in the DOT format.
func dot(g graph.Graph[string, string], w io.Writer) error {
	return errors.Wrap(draw.DOT(g, w, draw.GraphAttribute("rankdir", "LR")), "unable to write DOT graph")
}
