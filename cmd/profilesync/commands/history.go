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
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/walteh/profilesync/cmd/profilesync/opts"
	"github.com/walteh/profilesync/pkg/journal"
	"gitlab.com/tozd/go/errors"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd(o *opts.RootOpts) *cobra.Command {
	var (
		limit   int
		entries bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs from the journal",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := o.LoadConfig(ctx)
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled || cfg.Journal.Path == "" {
				fmt.Fprintln(o.Stdout, "the journal is disabled")
				return nil
			}
			if _, err := os.Stat(cfg.Journal.Path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(o.Stdout, "no runs recorded in %s\n", cfg.Journal.Path)
				return nil
			}

			j, err := journal.Open(ctx, cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintf(o.Stdout, "no runs recorded in %s\n", cfg.Journal.Path)
				return nil
			}

			for _, r := range runs {
				printRun(o.Stdout, r, entries)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().BoolVar(&entries, "entries", false, "show every task and job of each run")

	return cmd
}

func printRun(w io.Writer, r journal.Run, entries bool) {
	mark := color.GreenString("✓")
	if r.ExitCode != 0 {
		mark = color.RedString("✗")
	}
	dry := ""
	if r.DryRun {
		dry = color.New(color.Faint).Sprint(" (dry run)")
	}

	fmt.Fprintf(w, "%s #%d %s %s\\%s -> %s%s\n",
		mark, r.ID, r.Started.Format("2006-01-02 15:04:05"), r.Machine, r.User, r.Destination, dry)
	fmt.Fprintf(w, "    %d entries, %d failed, exit %d, took %s\n",
		len(r.Entries), r.Failed(), r.ExitCode, r.Finished.Sub(r.Started).Round(time.Millisecond))

	if !entries {
		return
	}
	for _, e := range r.Entries {
		line := fmt.Sprintf("      %-16s %-28s %s", e.Kind, e.Name, e.Outcome)
		if e.Detail != "" {
			line += " " + e.Detail
		}
		if e.Error != "" {
			line += " " + color.RedString(e.Error)
		}
		fmt.Fprintln(w, line)
	}
}
