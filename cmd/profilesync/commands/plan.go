// Copyright 2025 walteh LLC
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


package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/walteh/profilesync/cmd/profilesync/opts"
	"github.com/walteh/profilesync/pkg/config"
	"github.com/walteh/profilesync/pkg/plan"
	"github.com/walteh/profilesync/pkg/robocopy"
)

// NewPlanCmd creates the plan command
func NewPlanCmd(o *opts.RootOpts) *cobra.Command {
	var (
		showCommands  bool
		showDecisions bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a sync would copy without touching anything",
		Long: `Plan resolves the rules against the profile and lists the copy tasks,
registry exports and post-processing a sync would run. Nothing is executed.`,
		Args: NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := o.LoadConfig(ctx)
			if err != nil {
				return err
			}
			if err := o.CompleteProfile(ctx, cfg); err != nil {
				return err
			}

			p, err := resolve(cfg)
			if err != nil {
				return err
			}

			printPlan(o.Stdout, cfg, p, showCommands, showDecisions)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCommands, "commands", false, "print the robocopy command line of every task")
	cmd.Flags().BoolVar(&showDecisions, "decisions", false, "print how every rule target was decided")

	return cmd
}

func printPlan(w io.Writer, cfg *config.Config, p *plan.Plan, showCommands, showDecisions bool) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	fmt.Fprintf(w, "%s %s\n", color.MagentaString("◆"), bold.Sprint("plan for "+cfg.String()))

	tasks := p.TaskList()
	fmt.Fprintf(w, "\n%s\n", bold.Sprintf("copy tasks (%d)", len(tasks)))
	rc := cfg.RobocopyOptions()
	for _, t := range tasks {
		fmt.Fprintf(w, "  %s %s\n", color.CyanString("→"), t.Name)
		fmt.Fprintf(w, "      %s -> %s\n", t.Source, t.Destination)
		if len(t.ExcludeDirs) > 0 {
			fmt.Fprintf(w, "      %s %s\n", faint.Sprint("skips"), strings.Join(t.ExcludeDirs, ", "))
		}
		if showCommands {
			fmt.Fprintf(w, "      %s\n", faint.Sprint(robocopy.Build(t, rc, false).String()))
		}
	}

	if jobs := cfg.RegistryJobs(); len(jobs) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold.Sprintf("registry exports (%d)", len(jobs)))
		for _, j := range jobs {
			fmt.Fprintf(w, "  %s %s -> %s %s\n", color.CyanString("→"), j.Key, j.File, faint.Sprintf("(%s)", j.Elevation))
		}
	}

	if cfg.Shortcuts.Enabled {
		fmt.Fprintf(w, "\n%s\n", bold.Sprint("post-processing"))
		fmt.Fprintf(w, "  %s remove Mark of the Web from %s in %s\n", color.CyanString("→"),
			strings.Join(cfg.Shortcuts.Extensions, ", "), cfg.ShortcutsDir())
	}

	if showDecisions {
		fmt.Fprintf(w, "\n%s\n", bold.Sprint("decisions"))
		for _, d := range p.Decisions() {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
}
