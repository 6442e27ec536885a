/*
 * config_test.go, part of goNEB.
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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/goneb/neb"
	"github.com/rmera/goneb/opt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Check())
	assert.Equal(t, opt.NameFIRE, cfg.Run.NEBOptimizer)
	assert.Equal(t, opt.NameQuasiNewton, cfg.Run.RelaxOptimizer)
	assert.Equal(t, neb.IDPP, cfg.Run.Interpolate)
	assert.Equal(t, neb.ImprovedTangent, cfg.Run.Algorithm)
	assert.Equal(t, 8, cfg.Run.NMax)
	assert.Equal(t, 0.05, cfg.Run.Fmax)
	assert.True(t, cfg.Run.Climb)
	assert.Equal(t, []string{"mpirun", "-np", "1", "abacus"}, cfg.Profile().Argv())
	assert.Equal(t, 32, cfg.Profile().OMP)
	assert.Equal(t, 100.0, cfg.Engine.Ecutwfc)
	assert.Equal(t, []int{4, 4, 1}, cfg.Engine.Kpts)
	assert.Equal(t, "init/STRU", cfg.Paths.InitStru)
	assert.Equal(t, "final_opt.traj", cfg.Paths.FinalTraj)
}

func TestLoadOverDefaults(t *testing.T) {
	name := filepath.Join(t.TempDir(), "goneb.yaml")
	doc := `
run:
  n_max: 4
  omp: 8
  interpolate: linear
engine:
  ecutwfc: 60
  pp:
    Pt: Pt_ONCV_PBE-1.0.upf
paths:
  init_stru: a/STRU
`
	require.NoError(t, os.WriteFile(name, []byte(doc), 0644))
	cfg, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Run.NMax)
	assert.Equal(t, 8, cfg.Run.OMP)
	assert.Equal(t, neb.Linear, cfg.Run.Interpolate)
	assert.Equal(t, 60.0, cfg.Engine.Ecutwfc)
	assert.Equal(t, "Pt_ONCV_PBE-1.0.upf", cfg.Engine.PP["Pt"])
	assert.Equal(t, "Au_ONCV_PBE-1.0.upf", cfg.Engine.PP["Ir"], "default entries are kept")
	assert.Equal(t, "a/STRU", cfg.Paths.InitStru)
	assert.Equal(t, "final/STRU", cfg.Paths.FinalStru)
	assert.Equal(t, 0.05, cfg.Run.Fmax)
}

func TestSaveLoad(t *testing.T) {
	name := filepath.Join(t.TempDir(), "goneb.yaml")
	cfg := DefaultConfig()
	cfg.Run.Parallel = 4
	cfg.Engine.Extra = map[string]string{"nspin": "2"}
	require.NoError(t, Save(name, cfg))
	back, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nothere.yaml"))
	assert.Error(t, err)

	name := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(name, []byte("run: [1, 2"), 0644))
	_, err = Load(name)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(name, []byte("run:\n  fmax: -1\n"), 0644))
	_, err = Load(name)
	assert.ErrorContains(t, err, "fmax")
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		msg    string
	}{
		{"fmax", func(c *Config) { c.Run.Fmax = 0 }, "fmax"},
		{"climb_fmax", func(c *Config) { c.Run.ClimbFmax = -1 }, "climb_fmax"},
		{"n_max", func(c *Config) { c.Run.NMax = 0 }, "n_max"},
		{"mpi", func(c *Config) { c.Run.MPI = 0 }, "mpi"},
		{"omp", func(c *Config) { c.Run.OMP = 0 }, "omp"},
		{"steps", func(c *Config) { c.Run.NEBSteps = 0 }, "steps"},
		{"executable", func(c *Config) { c.Run.Executable = "" }, "executable"},
		{"relax optimizer", func(c *Config) { c.Run.RelaxOptimizer = "CG" }, "relax_optimizer"},
		{"neb optimizer", func(c *Config) { c.Run.NEBOptimizer = opt.NameBFGS }, "neb_optimizer"},
		{"interpolation", func(c *Config) { c.Run.Interpolate = "spline" }, "interpolation"},
		{"tangent", func(c *Config) { c.Run.Algorithm = "elastic" }, "tangent"},
		{"k", func(c *Config) { c.Run.K = 0 }, "spring"},
		{"parallel", func(c *Config) { c.Run.Parallel = 0 }, "parallel"},
		{"path", func(c *Config) { c.Paths.NEBDir = "" }, "neb_dir"},
		{"kpts", func(c *Config) { c.Engine.Kpts = []int{4, 4} }, "kpts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Check(), tt.msg)
		})
	}
}
