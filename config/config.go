/*
 * config.go, part of goNEB.
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

//Package config assembles, validates, loads and saves the settings for a goNEB run.
//A Config is built once at startup and passed to every stage.
package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rmera/goneb/neb"
	"github.com/rmera/goneb/opt"
	"github.com/rmera/goneb/qm"
	"gopkg.in/yaml.v3"
)

//Default run settings, those of the CH4/Ir(001) example.
const (
	DefaultFmax       = 0.05
	DefaultClimbFmax  = 0.5
	DefaultNMax       = 8
	DefaultMPI        = 1
	DefaultOMP        = 32
	DefaultRelaxSteps = 500
	DefaultNEBSteps   = 500
	DefaultK          = 0.1
)

//Config is the complete set of settings for a run.
type Config struct {
	Engine qm.Params `yaml:"engine"`
	Run    Run       `yaml:"run"`
	Paths  Paths     `yaml:"paths"`
}

//Run controls the engine launch, the relaxations and the band.
type Run struct {
	MPI            int     `yaml:"mpi"`
	OMP            int     `yaml:"omp"`
	Executable     string  `yaml:"executable"`
	RelaxOptimizer string  `yaml:"relax_optimizer"`
	NEBOptimizer   string  `yaml:"neb_optimizer"`
	Fmax           float64 `yaml:"fmax"`
	RelaxSteps     int     `yaml:"relax_steps"`
	NEBSteps       int     `yaml:"neb_steps"`
	Climb          bool    `yaml:"climb"`
	ClimbFmax      float64 `yaml:"climb_fmax"` //the climbing image is switched on below this force. 0 means from the start.
	NMax           int     `yaml:"n_max"`
	Interpolate    string  `yaml:"interpolate"`
	Algorithm      string  `yaml:"algorithm"`
	K              float64 `yaml:"k"`
	Dynamic        bool    `yaml:"dynamic"`
	Parallel       int     `yaml:"parallel"`
}

//Paths are the input and output files and directories.
type Paths struct {
	InitStru   string `yaml:"init_stru"`
	FinalStru  string `yaml:"final_stru"`
	InitDir    string `yaml:"init_dir"`
	FinalDir   string `yaml:"final_dir"`
	NEBDir     string `yaml:"neb_dir"`
	InitTraj   string `yaml:"init_traj"`
	FinalTraj  string `yaml:"final_traj"`
	NEBTraj    string `yaml:"neb_traj"`
	Checkpoint string `yaml:"checkpoint"`
	Plot       string `yaml:"plot"`
}

//DefaultConfig returns the settings for the CH4 dissociation on Ir(001).
func DefaultConfig() *Config {
	return &Config{
		Engine: qm.DefaultParams(),
		Run: Run{
			MPI:            DefaultMPI,
			OMP:            DefaultOMP,
			Executable:     "abacus",
			RelaxOptimizer: opt.NameQuasiNewton,
			NEBOptimizer:   opt.NameFIRE,
			Fmax:           DefaultFmax,
			RelaxSteps:     DefaultRelaxSteps,
			NEBSteps:       DefaultNEBSteps,
			Climb:          true,
			ClimbFmax:      DefaultClimbFmax,
			NMax:           DefaultNMax,
			Interpolate:    neb.IDPP,
			Algorithm:      neb.ImprovedTangent,
			K:              DefaultK,
			Dynamic:        true,
			Parallel:       1,
		},
		Paths: Paths{
			InitStru:   "init/STRU",
			FinalStru:  "final/STRU",
			InitDir:    "INIT",
			FinalDir:   "FINAL",
			NEBDir:     "OUT",
			InitTraj:   "init_opt.traj",
			FinalTraj:  "final_opt.traj",
			NEBTraj:    "neb.traj",
			Checkpoint: "checkpoint",
			Plot:       "neb.png",
		},
	}
}

//Load reads the YAML file path over the default settings. Keys missing in the file keep
//their default values. The pp and basis maps are merged with the default ones.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading configuration")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing configuration %s", path)
	}
	if err := cfg.Check(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %s", path)
	}
	return cfg, nil
}

//Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

//YAML returns the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

//Check returns an error if any setting is invalid. Element coverage of the pp and
//basis maps is checked later, once the structures are known.
func (c *Config) Check() error {
	r := c.Run
	switch {
	case r.Fmax <= 0:
		return errors.Errorf("fmax must be positive, got %g", r.Fmax)
	case r.ClimbFmax < 0:
		return errors.Errorf("climb_fmax can't be negative, got %g", r.ClimbFmax)
	case r.NMax < 1:
		return errors.Errorf("n_max must be at least 1, got %d", r.NMax)
	case r.MPI < 1:
		return errors.Errorf("mpi must be at least 1, got %d", r.MPI)
	case r.OMP < 1:
		return errors.Errorf("omp must be at least 1, got %d", r.OMP)
	case r.RelaxSteps < 1 || r.NEBSteps < 1:
		return errors.Errorf("relax_steps and neb_steps must be positive, got %d and %d", r.RelaxSteps, r.NEBSteps)
	case r.Executable == "":
		return errors.New("no executable given")
	case !opt.Known(r.RelaxOptimizer):
		return errors.Errorf("unknown relax_optimizer %q", r.RelaxOptimizer)
	case r.NEBOptimizer != opt.NameFIRE:
		return errors.Errorf("neb_optimizer must be %s, got %q", opt.NameFIRE, r.NEBOptimizer)
	case r.Interpolate != neb.Linear && r.Interpolate != neb.IDPP:
		return errors.Errorf("unknown interpolation %q", r.Interpolate)
	}
	if err := c.NEBOptions(false).Check(); err != nil {
		return err
	}
	p := c.Paths
	for k, v := range map[string]string{"init_stru": p.InitStru, "final_stru": p.FinalStru, "init_dir": p.InitDir,
		"final_dir": p.FinalDir, "neb_dir": p.NEBDir, "checkpoint": p.Checkpoint} {
		if v == "" {
			return errors.Errorf("path %s not set", k)
		}
	}
	return c.Engine.Check(nil)
}

//NEBOptions returns the band options given by the configuration.
func (c *Config) NEBOptions(verbose bool) neb.Options {
	return neb.Options{
		K:        c.Run.K,
		Climb:    c.Run.Climb,
		Method:   c.Run.Algorithm,
		Dynamic:  c.Run.Dynamic,
		Parallel: c.Run.Parallel,
		Verbose:  verbose,
	}
}

//Profile returns the launch profile for the engine.
func (c *Config) Profile() qm.Profile {
	return qm.NewProfile(c.Run.Executable, c.Run.MPI, c.Run.OMP)
}
