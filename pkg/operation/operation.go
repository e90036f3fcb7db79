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

package operation

import (
	"context"
	"io/fs"
	"os"

	"github.com/walteh/profilesync/pkg/auth"
	"github.com/walteh/profilesync/pkg/config"
	"github.com/walteh/profilesync/pkg/execution"
	"github.com/walteh/profilesync/pkg/log"
	"github.com/walteh/profilesync/pkg/motw"
	"github.com/walteh/profilesync/pkg/registry"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Operation is one stage of a sync run. Per-task outcomes go into the
// summary; a returned error is fatal and stops the run.
type Operation interface {
	Name() string
	Execute(ctx context.Context, sum *status.Summary) error
}

// 🔐 Authenticator establishes access to a share
type Authenticator interface {
	Authenticate(ctx context.Context, share string) error
}

var _ Authenticator = (*auth.Mediator)(nil)

// 🔧 Options contains everything the operations need
type Options struct {
	// Config is the loaded configuration, dry run included
	Config *config.Config
	// Exec runs every external command
	Exec execution.Executor
	// Auth is asked for access when a share refuses us; nil disables retries
	Auth Authenticator
	// Prober checks the source before copying; nil skips the check
	Prober auth.Prober
	// Registry exports keys; nil builds one from Config
	Registry *registry.Coordinator
	// Stripper removes Mark of the Web; nil builds one from Config
	Stripper *motw.Stripper
	// Logger prints operator-facing progress; nil uses the one in the context
	Logger *log.Logger
	// SourceFS lists the profile folder for glob rules
	SourceFS fs.FS
	// ProgramsFS lists the Program Files folder for glob rules
	ProgramsFS fs.FS
	// MkdirAll creates the destination, os.MkdirAll by default
	MkdirAll func(path string, perm fs.FileMode) error
}

// 🏭 BaseOperation holds the options shared by every operation
type BaseOperation struct {
	Options
}

// 🏭 NewBaseOperation fills in defaults
func NewBaseOperation(opts Options) BaseOperation {
	if opts.MkdirAll == nil {
		opts.MkdirAll = os.MkdirAll
	}
	return BaseOperation{Options: opts}
}

func (b *BaseOperation) validate() error {
	if b.Config == nil {
		return errors.Errorf("config is required")
	}
	if b.Exec == nil {
		return errors.Errorf("executor is required")
	}
	return nil
}

func (b *BaseOperation) logger(ctx context.Context) *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.FromContext(ctx)
}

func (b *BaseOperation) dryRun() bool {
	return b.Config.DryRun
}

// report prints and records one entry
func (b *BaseOperation) report(ctx context.Context, sum *status.Summary, e status.Entry) {
	sum.Add(e)
	b.logger(ctx).Task(taskLine(e))
}

func taskLine(e status.Entry) log.TaskLine {
	line := log.TaskLine{
		Name:      e.Name,
		Kind:      string(e.Kind),
		Status:    e.Outcome.String(),
		Simulated: e.Simulated,
		Detail:    e.Detail,
	}
	switch {
	case e.OK() && e.Outcome == execution.OutcomePartialSuccess:
		line.State = log.TaskWarned
	case e.OK():
		line.State = log.TaskSucceeded
	case e.Outcome == execution.OutcomeUnknown:
		line.State = log.TaskSkipped
	default:
		line.State = log.TaskFailed
		if e.Err != nil && line.Detail == "" {
			line.Detail = e.Err.Error()
		}
	}
	return line
}
