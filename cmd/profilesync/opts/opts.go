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


package opts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/walteh/profilesync/pkg/auth"
	"github.com/walteh/profilesync/pkg/config"
	"github.com/walteh/profilesync/pkg/execution"
	"github.com/walteh/profilesync/pkg/log"
	"github.com/walteh/profilesync/pkg/plan"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// Flags are the command line overrides applied on top of the config file
type Flags struct {
	Machine     string
	User        string
	Destination string
	DryRun      bool
	Yes         bool
	Helper      string
	Session     int
	Programs    []string
	Registry    bool
	RegistrySet bool // --registry was given explicitly
	LogDir      string
}

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile string
	Debug      bool
	Flags      Flags

	Stdout   io.Writer
	Stderr   io.Writer
	Prompter log.Prompter
	// Interactive reports whether prompts can be answered
	Interactive func() bool
	// Spawner runs external tools; nil spawns real processes
	Spawner execution.Spawner
	// Prober checks the source share; nil stats it
	Prober auth.Prober
	Getenv func(string) string
	Getwd  func() (string, error)
	Now    func() time.Time
}

// 🏭 New creates options wired to the real terminal and environment
func New() *RootOpts {
	return &RootOpts{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Prompter: &log.TerminalPrompter{},
		Interactive: func() bool {
			fd := os.Stdin.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
		Getenv: os.Getenv,
		Getwd:  os.Getwd,
		Now:    time.Now,
	}
}

// CanPrompt reports whether the operator can answer prompts
func (o *RootOpts) CanPrompt() bool {
	return o.Interactive != nil && o.Interactive() && o.Prompter != nil
}

// 🎯 LoadConfig loads the config file, or the defaults when none is found, and
// applies the command line overrides
func (o *RootOpts) LoadConfig(ctx context.Context) (*config.Config, error) {
	logger := zerolog.Ctx(ctx)

	path := o.ConfigFile
	if path == "" {
		wd, err := o.Getwd()
		if err != nil {
			return nil, errors.Errorf("getting working directory: %w", err)
		}
		if found, ok := config.Find(wd); ok {
			path = found
		}
	}

	var cfg *config.Config
	if path == "" {
		logger.Debug().Msg("no config file found, using defaults")
		cfg = config.Default()
	} else {
		loaded, err := config.Load(ctx, path)
		if err != nil {
			return nil, Usage(err)
		}
		cfg = loaded
	}

	o.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, Usage(errors.Errorf("validating flags: %w", err))
	}
	return cfg, nil
}

func (o *RootOpts) apply(cfg *config.Config) {
	f := o.Flags
	if f.Machine != "" {
		cfg.Profile.Machine = f.Machine
	}
	if f.User != "" {
		cfg.Profile.User = f.User
	}
	if f.Destination != "" {
		cfg.Profile.Destination = f.Destination
	}
	if f.DryRun {
		cfg.DryRun = true
	}
	if f.Helper != "" {
		cfg.Registry.Helper = f.Helper
		cfg.Registry.Elevation = "helper"
	}
	if f.Session > 0 {
		cfg.Registry.Session = f.Session
	}
	if len(f.Programs) > 0 {
		cfg.Programs.Enabled = true
		cfg.Programs.Include = f.Programs
	}
	if f.RegistrySet {
		cfg.Registry.Enabled = f.Registry
	}
	if f.LogDir != "" {
		cfg.Logs.Dir = f.LogDir
	}
}

// 💬 CompleteProfile asks for the source machine, user and destination when
// neither the config nor the flags named them
func (o *RootOpts) CompleteProfile(ctx context.Context, cfg *config.Config) error {
	fields := []struct {
		value  *string
		prompt string
		flag   string
	}{
		{&cfg.Profile.Machine, "Source machine name", "--machine"},
		{&cfg.Profile.User, "Username to migrate", "--username"},
		{&cfg.Profile.Destination, "Destination path", "--destination"},
	}

	for _, f := range fields {
		if strings.TrimSpace(*f.value) != "" {
			continue
		}
		if !o.CanPrompt() {
			return Usage(errors.Errorf("%s is required, pass %s", strings.ToLower(f.prompt), f.flag))
		}
		v, err := o.Prompter.Text(ctx, f.prompt, "")
		if err != nil {
			return errors.Errorf("prompting for %s: %w", strings.ToLower(f.prompt), err)
		}
		if strings.TrimSpace(v) == "" {
			return Usage(errors.Errorf("%s is required", strings.ToLower(f.prompt)))
		}
		*f.value = strings.TrimSpace(v)
	}
	return nil
}

// ✅ Confirm asks before a real sync starts. Dry runs, --yes and
// non-interactive sessions go ahead without asking.
func (o *RootOpts) Confirm(ctx context.Context, cfg *config.Config) (bool, error) {
	if cfg.DryRun || o.Flags.Yes || !o.CanPrompt() {
		return true, nil
	}
	return o.Prompter.Confirm(ctx, "Proceed with sync?", true)
}

// 🪵 Logger builds the diagnostic logger. The console only shows warnings
// unless debug is on.
func (o *RootOpts) Logger(extra ...io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if o.Debug {
		level = zerolog.DebugLevel
	}
	writers := []io.Writer{
		&zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{Out: o.Stderr, TimeFormat: time.Kitchen}},
			Level:  level,
		},
	}
	writers = append(writers, extra...)
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// 📝 StartRunLog adds a per-run JSON log file under dir to the context logger.
// It returns the file path, empty when dir is empty, and a func closing the file.
func (o *RootOpts) StartRunLog(ctx context.Context, dir string) (context.Context, string, func(), error) {
	if dir == "" {
		return ctx, "", func() {}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ctx, "", nil, errors.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(dir, "sync_"+o.Now().Format("20060102_150405")+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return ctx, "", nil, errors.Errorf("opening log file: %w", err)
	}

	logger := o.Logger(file)
	return logger.WithContext(ctx), path, func() { file.Close() }, nil
}

// ExitError carries the process exit status out of a command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Usage marks err as a configuration or usage problem
func Usage(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: status.ExitUsage, Err: err}
}

// 🚦 ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return status.ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var cfgErr *plan.ConfigurationError
	if errors.As(err, &cfgErr) {
		return status.ExitUsage
	}
	return status.ExitFailure
}
