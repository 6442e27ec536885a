/*
 * checkpoint.go, part of goNEB.
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
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	chem "github.com/rmera/goneb"
	"github.com/rmera/goneb/qm"
	v3 "github.com/rmera/goneb/v3"
)

//Checkpoint files, in the checkpoint directory.
const (
	stateFile    = "state.json"
	initialStru  = "initial.STRU"
	finalStru    = "final.STRU"
	bandTrajFile = "band.traj"
)

//endpoint is the result of a relaxation, as saved in the state file.
type endpoint struct {
	Energy float64   `json:"energy"`
	Forces []float64 `json:"forces"`
	Steps  int       `json:"steps"`
	Order  []int     `json:"order"` //index in the input structure of each atom in the STRU file
}

//checkpoint is the content of the state file.
type checkpoint struct {
	Completed []string  `json:"completed"`
	Initial   *endpoint `json:"initial,omitempty"`
	Final     *endpoint `json:"final,omitempty"`
	Barrier   float64   `json:"barrier,omitempty"`
}

func (c *checkpoint) done(stage string) bool {
	for _, v := range c.Completed {
		if v == stage {
			return true
		}
	}
	return false
}

func (c *checkpoint) complete(stage string) {
	if !c.done(stage) {
		c.Completed = append(c.Completed, stage)
	}
}

//readCheckpoint reads the state file in dir. A missing file gives an empty checkpoint.
func readCheckpoint(dir string) (*checkpoint, error) {
	c := new(checkpoint)
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading checkpoint")
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "corrupted checkpoint %s", filepath.Join(dir, stateFile))
	}
	return c, nil
}

//write saves the state file in dir. The file is replaced atomically, so an interrupted
//run never leaves a half-written checkpoint.
func (c *checkpoint) write(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating checkpoint directory")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding checkpoint")
	}
	tmp := filepath.Join(dir, stateFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "writing checkpoint")
	}
	return errors.Wrap(os.Rename(tmp, filepath.Join(dir, stateFile)), "writing checkpoint")
}

func newEndpoint(r *qm.Result, steps int, order []int) *endpoint {
	return &endpoint{Energy: r.Energy, Forces: r.Forces.Flat(), Steps: steps, Order: order}
}

//result rebuilds the engine result of a saved endpoint.
func (e *endpoint) result() (*qm.Result, error) {
	f, err := v3.NewMatrix(e.Forces)
	if err != nil {
		return nil, errors.Wrap(err, "bad forces in checkpoint")
	}
	return &qm.Result{Energy: e.Energy, Forces: f}, nil
}

//saveEndpoint writes the relaxed structure and its result.
func (W *Workflow) saveEndpoint(stage string, S *chem.Structure, r *qm.Result, steps int) error {
	name, basis := initialStru, W.cfg.Engine.Basis
	if stage == StageRelaxFinal {
		name = finalStru
	}
	if W.cfg.Engine.PlaneWaves() {
		basis = nil
	}
	dir := W.cfg.Paths.Checkpoint
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating checkpoint directory")
	}
	perm, err := chem.STRUFileWrite(filepath.Join(dir, name), S, W.cfg.Engine.PP, basis)
	if err != nil {
		return errors.Wrap(err, "saving relaxed structure")
	}
	if stage == StageRelaxFinal {
		W.ckpt.Final = newEndpoint(r, steps, perm)
	} else {
		W.ckpt.Initial = newEndpoint(r, steps, perm)
	}
	W.ckpt.complete(stage)
	return W.ckpt.write(dir)
}

//loadEndpoint restores the relaxed coordinates of the structure in, and its result, from the
//checkpoint. The checkpoint must contain the same atoms as in.
func (W *Workflow) loadEndpoint(stage string, in *chem.Structure) (*chem.Structure, *qm.Result, error) {
	name, e := initialStru, W.ckpt.Initial
	if stage == StageRelaxFinal {
		name, e = finalStru, W.ckpt.Final
	}
	if e == nil {
		return nil, nil, errors.Errorf("no %s result in checkpoint", stage)
	}
	S, err := chem.STRURead(filepath.Join(W.cfg.Paths.Checkpoint, name))
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading checkpoint structure")
	}
	r, err := e.result()
	if err != nil {
		return nil, nil, err
	}
	if r.Forces.NVecs() != in.Len() || S.Len() != in.Len() || len(e.Order) != in.Len() {
		return nil, nil, errors.Errorf("checkpoint for %s doesn't match the %d atoms of the input", stage, in.Len())
	}
	ret := in.Copy()
	for k, i := range e.Order {
		if i < 0 || i >= in.Len() || S.Atoms[k].Symbol != in.Atoms[i].Symbol {
			return nil, nil, errors.Errorf("checkpoint for %s doesn't match the input atoms", stage)
		}
	}
	ret.Coords.SetVecs(S.Coords, e.Order)
	ret.Cell = S.Cell
	return ret, r, nil
}
