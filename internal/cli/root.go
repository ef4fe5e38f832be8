// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli assembles the txtpp command line, the generalization of
// ninja.go's flat flag.FlagSet (readFlags) to a spf13/cobra command tree:
// a default build action plus clean/verify/graph subcommands, all sharing
// the same pool of persistent flags.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/txtpp/txtpp"
	"github.com/txtpp/txtpp/internal/run"
)

// NewRootCmd builds the txtpp command tree.
func NewRootCmd() *cobra.Command {
	opts := &run.Options{}

	root := &cobra.Command{
		Use:           "txtpp [inputs...]",
		Short:         "txtpp preprocesses text files through embedded directives",
		Version:       txtpp.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Inputs = defaultInputs(args)
			return run.Build(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "don't show progress status, just command output")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "show debug logging as each file is scheduled and finished")
	flags.BoolVarP(&opts.Recursive, "recursive", "r", false, "recurse into subdirectories when an input is a directory")
	flags.IntVarP(&opts.Threads, "threads", "j", 0, "run N files in parallel (0 uses the config default)")
	flags.StringVarP(&opts.Shell, "shell", "s", "", "shell used to run {{TXTPP#run}} commands (defaults to /bin/sh, or bash on Windows)")

	buildFlags := root.Flags()
	buildFlags.BoolVar(&opts.DryRun, "dry-run", false, "report what would be built without touching disk")

	root.AddCommand(newCleanCmd(opts))
	root.AddCommand(newVerifyCmd(opts))
	root.AddCommand(newGraphCmd(opts))

	return root
}

func newCleanCmd(opts *run.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [inputs...]",
		Short: "remove generated output and temp files",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Inputs = defaultInputs(args)
			return run.Clean(cmd.Context(), opts)
		},
	}
}

func newVerifyCmd(opts *run.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [inputs...]",
		Short: "check that existing output matches a fresh build",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Inputs = defaultInputs(args)
			return run.Verify(cmd.Context(), opts)
		},
	}
}

func newGraphCmd(opts *run.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [inputs...]",
		Short: "print the resolved dependency graph as graphviz DOT",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Inputs = defaultInputs(args)
			dot, err := run.Graph(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), dot)
			return nil
		},
	}
}

func defaultInputs(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}
