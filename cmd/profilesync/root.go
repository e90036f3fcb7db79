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


package main

import (
	"github.com/spf13/cobra"
	"github.com/walteh/profilesync/cmd/profilesync/commands"
	"github.com/walteh/profilesync/cmd/profilesync/opts"
)

// newRootCmd builds the command tree around shared options
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profilesync",
		Short: "Migrate a Windows user profile from a remote workstation",
		Long: `profilesync copies a user profile from a remote Windows workstation over its
administrative share, exports selected registry keys and cleans up the copied
desktop shortcuts. Without a subcommand it runs a sync.`,
		Args:          commands.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			o.Flags.RegistrySet = cmd.Flags().Changed("registry")
			logger := o.Logger()
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunSync(cmd.Context(), o)
		},
	}

	addRootFlags(cmd, o)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return opts.Usage(err)
	})
	cmd.SetOut(o.Stdout)
	cmd.SetErr(o.Stderr)

	cmd.AddCommand(
		commands.NewSyncCmd(o),
		commands.NewPlanCmd(o),
		commands.NewInitCmd(o),
		commands.NewHistoryCmd(o),
		commands.NewVersionCmd(o),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.ConfigFile, "config", "c", "", "config file path (default: profilesync.yaml, .yml, .hcl or .json in the working directory)")
	f.BoolVar(&o.Debug, "debug", false, "enable debug logging")

	f.StringVarP(&o.Flags.Machine, "machine", "m", "", "source machine name")
	f.StringVarP(&o.Flags.User, "username", "u", "", "user profile to migrate")
	f.StringVarP(&o.Flags.Destination, "destination", "d", "", "destination folder")
	f.BoolVar(&o.Flags.DryRun, "dryrun", false, "show what would happen without copying anything")
	f.BoolVarP(&o.Flags.Yes, "yes", "y", false, "do not ask for confirmation")
	f.StringVar(&o.Flags.Helper, "psexec", "", "path to PsExec.exe, exports registry keys through it")
	f.IntVar(&o.Flags.Session, "session", 0, "interactive session PsExec runs in (default: the console session)")
	f.StringSliceVar(&o.Flags.Programs, "programs", nil, "Program Files (x86) folders to copy as well")
	f.BoolVar(&o.Flags.Registry, "registry", true, "export the configured registry keys")
	f.StringVar(&o.Flags.LogDir, "log-dir", "", "directory for the per-run log file")
}
