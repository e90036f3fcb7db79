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
	"context"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/profilesync/cmd/profilesync/opts"
	"github.com/walteh/profilesync/pkg/auth"
	"github.com/walteh/profilesync/pkg/config"
	"github.com/walteh/profilesync/pkg/execution"
	"github.com/walteh/profilesync/pkg/journal"
	"github.com/walteh/profilesync/pkg/log"
	"github.com/walteh/profilesync/pkg/operation"
	"github.com/walteh/profilesync/pkg/plan"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// NewSyncCmd creates the sync command. Running profilesync without a
// subcommand does the same.
func NewSyncCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy a user profile from a remote workstation",
		Long: `Sync copies a user profile from \\<machine>\C$\Users\<user> to the destination.
It will:
1. Resolve the include and exclude rules into copy tasks
2. Authenticate to the source share when access is denied
3. Run robocopy once per task
4. Export the configured registry keys
5. Remove Mark of the Web from the copied desktop shortcuts
6. Print a summary and record the run in the journal`,
		Args: NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunSync(cmd.Context(), o)
		},
	}
}

// NoArgs rejects positional arguments as a usage error
func NoArgs(cmd *cobra.Command, args []string) error {
	return opts.Usage(cobra.NoArgs(cmd, args))
}

// 🔄 RunSync runs a full sync and maps its outcome to an error carrying the exit code
func RunSync(ctx context.Context, o *opts.RootOpts) error {
	cfg, err := o.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if err := o.CompleteProfile(ctx, cfg); err != nil {
		return err
	}

	ctx, logPath, closeLog, err := o.StartRunLog(ctx, cfg.Logs.Dir)
	if err != nil {
		return err
	}
	defer closeLog()

	zlog := zerolog.Ctx(ctx).With().Str("command", "sync").Logger()
	ctx = zlog.WithContext(ctx)
	ui := log.New(o.Stdout, zlog)
	ctx = log.NewContext(ctx, ui)

	ui.Header("profilesync " + cfg.String())
	if logPath != "" {
		ui.Infof("writing the run log to %s", logPath)
	}

	ok, err := o.Confirm(ctx, cfg)
	if err != nil {
		return errors.Errorf("confirming sync: %w", err)
	}
	if !ok {
		ui.Warning("sync cancelled")
		return nil
	}

	engine := execution.NewEngine(o.Spawner)
	mediator := auth.NewMediator(cfg.Auth.MaxAttempts, credentialSource(cfg, o), &auth.NetUseConnector{Exec: engine},
		auth.WithObserver(func(tr auth.Transition) {
			zlog.Debug().
				Str("share", tr.Share).
				Int("attempt", tr.Attempt).
				Str("from", tr.From.String()).
				Str("to", tr.To.String()).
				AnErr("cause", tr.Err).
				Msg("authentication state changed")
		}),
	)

	prober := o.Prober
	if prober == nil {
		prober = &auth.StatProber{}
	}

	spec := cfg.ProfileSpec()
	sum, runErr := operation.Sync(ctx, operation.Options{
		Config:     cfg,
		Exec:       engine,
		Auth:       mediator,
		Prober:     prober,
		Logger:     ui,
		SourceFS:   dirFS(spec.SourceRoot()),
		ProgramsFS: dirFS(spec.ProgramsSource),
	})

	if sum != nil {
		sum.Render(o.Stdout)
		record(ctx, cfg, sum)
	}
	if runErr != nil {
		return runErr
	}
	if code := sum.ExitCode(); code != status.ExitOK {
		return &opts.ExitError{Code: code}
	}
	return nil
}

// credentialSource offers the configured account first and prompts after
// that when someone can answer
func credentialSource(cfg *config.Config, o *opts.RootOpts) auth.CredentialSource {
	static := &auth.StaticSource{Creds: cfg.StaticCredentials(o.Getenv)}
	if o.CanPrompt() {
		static.Next = &auth.PromptSource{
			Prompter: o.Prompter,
			Domain:   cfg.Auth.Domain,
			Username: cfg.Auth.Username,
		}
	}
	return static
}

func dirFS(root string) fs.FS {
	if root == "" {
		return nil
	}
	return os.DirFS(root)
}

// record journals the run. A journal failure never changes the outcome.
func record(ctx context.Context, cfg *config.Config, sum *status.Summary) {
	if !cfg.Journal.Enabled || cfg.Journal.Path == "" {
		return
	}
	logger := zerolog.Ctx(ctx)

	j, err := journal.Open(ctx, cfg.Journal.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("run not journaled")
		return
	}
	defer j.Close()

	id, err := j.Record(ctx, journal.FromSummary(cfg.ProfileSpec(), sum))
	if err != nil {
		logger.Warn().Err(err).Msg("run not journaled")
		return
	}
	logger.Debug().Int64("run", id).Str("journal", j.Path()).Msg("run journaled")
}

// resolve builds the plan the copy stage would run
func resolve(cfg *config.Config) (*plan.Plan, error) {
	spec := cfg.ProfileSpec()
	var ropts []plan.ResolveOption
	if fsys := dirFS(spec.SourceRoot()); fsys != nil {
		ropts = append(ropts, plan.WithSourceFS(fsys))
	}
	if fsys := dirFS(spec.ProgramsSource); fsys != nil {
		ropts = append(ropts, plan.WithProgramsFS(fsys))
	}
	return plan.Resolve(spec, cfg.SyncRules(), ropts...)
}
