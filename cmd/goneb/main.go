/*
 * main.go, part of goNEB.
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

/*To the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche*/

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmera/goneb/chemplot"
	"github.com/rmera/goneb/config"
	"github.com/rmera/goneb/neb"
	"github.com/rmera/goneb/traj"
	"github.com/rmera/goneb/workflow"
	"github.com/spf13/cobra"
)

//Global variables... Sometimes, you gotta use'em
var (
	verb       int
	configFile string
	fresh      bool
	plotFile   string
)

//If v is at least vref, prints the d arguments to stderr
//otherwise, does nothing.
func LogV(v int, vref int, d ...interface{}) {
	if v >= vref {
		fmt.Fprintln(os.Stderr, d...)
	}
}

func main() {
	log.SetPrefix("goneb: ")
	rootCmd := &cobra.Command{
		Use:          "goneb",
		Short:        "climbing image NEB transition state searches with ABACUS",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file. The defaults are used for missing keys")
	rootCmd.PersistentFlags().CountVarP(&verb, "verbose", "v", "verbosity, repeat for more")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "relax the endpoints, run the NEB and report the barrier",
		Args:  cobra.NoArgs,
		RunE:  runWorkflow,
	}
	runCmd.Flags().BoolVar(&fresh, "fresh", false, "ignore previous checkpoints")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the configuration (the defaults, unless -c is given) as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	barrierCmd := &cobra.Command{
		Use:   "barrier [band.traj]",
		Short: "obtain the barrier from the last band in a NEB trajectory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			P, err := readPath(args[0])
			if err != nil {
				return err
			}
			b, err := P.Barrier()
			if err != nil {
				return err
			}
			fit, err := P.Fit()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b)
			fmt.Fprintln(cmd.OutOrStdout(), chemplot.BandASCII(fit, 60, 12))
			return nil
		},
	}

	plotCmd := &cobra.Command{
		Use:   "plot [band.traj]",
		Short: "plot the energy profile of the last band in a NEB trajectory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			P, err := readPath(args[0])
			if err != nil {
				return err
			}
			if !P.Converged {
				log.Printf("the band in %s is not converged", args[0])
			}
			fit, err := P.Fit()
			if err != nil {
				return err
			}
			LogV(verb, 1, "Writing", plotFile)
			return chemplot.BandPlot(fit, "NEB energy profile", plotFile)
		},
	}
	plotCmd.Flags().StringVarP(&plotFile, "output", "o", "neb.png", "plot file, the format is given by the extension")

	stagesCmd := &cobra.Command{
		Use:   "stages",
		Short: "print the stage graph in the DOT format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			W, err := workflow.New(cfg)
			if err != nil {
				return err
			}
			return W.DOT(cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(runCmd, configCmd, barrierCmd, plotCmd, stagesCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	LogV(verb, 1, "Reading configuration from", configFile)
	return config.Load(configFile)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	W, err := workflow.New(cfg, workflow.WithFresh(fresh), workflow.WithVerbose(verb > 0), workflow.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	if err := W.Run(ctx); err != nil {
		log.Printf("stopped while %s", W.State())
		return err
	}
	if verb > 1 {
		calls, hits := W.EngineStats()
		LogV(verb, 2, "Engine calculations:", calls, "cached:", hits)
	}
	return nil
}

func readPath(name string) (*neb.Path, error) {
	frames, err := traj.ReadAll(name)
	if err != nil {
		return nil, err
	}
	LogV(verb, 1, "Read", len(frames), "frames from", name)
	return neb.PathFromFrames(frames)
}
