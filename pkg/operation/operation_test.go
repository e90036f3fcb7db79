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

package operation_test

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/profilesync/pkg/auth"
	"github.com/walteh/profilesync/pkg/config"
	"github.com/walteh/profilesync/pkg/execution"
	"github.com/walteh/profilesync/pkg/execution/exectest"
	"github.com/walteh/profilesync/pkg/log"
	"github.com/walteh/profilesync/pkg/operation"
	"github.com/walteh/profilesync/pkg/plan"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

const (
	rootSource = `\\WS-07\C$\Users\jsmith`
	share      = `\\WS-07\C$`
)

var (
	denied = exectest.Reply{ExitCode: 16, Output: "ERROR 5 (0x00000005) Accessing Source Directory\nAccess is denied.\n"}
	copied = exectest.Reply{ExitCode: 1}
)

// 🔧 MockAuthenticator is a mock implementation of the operation.Authenticator interface
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, share string) error {
	return m.Called(ctx, share).Error(0)
}

// 🔧 MockProber is a mock implementation of the auth.Prober interface
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func testContext(t *testing.T) (context.Context, *bytes.Buffer) {
	zlog := zerolog.New(zerolog.NewTestWriter(t))
	var console bytes.Buffer
	ctx := zlog.WithContext(context.Background())
	return log.NewContext(ctx, log.New(&console, zlog)), &console
}

// workstation is the WS-07 profile with Roaming included and Temp excluded
func workstation(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Profile.Machine = "WS-07"
	cfg.Profile.User = "jsmith"
	cfg.Profile.Destination = t.TempDir()
	cfg.Rules = []config.RuleArgs{
		{Pattern: `AppData\Roaming`, Action: "include"},
		{Pattern: `AppData\Local\Temp`, Action: "exclude"},
	}
	cfg.Registry.Enabled = false
	cfg.Shortcuts.Enabled = false
	cfg.Auth.Preflight = false
	return cfg
}

// perSource counts calls by source so replies can change between attempts
func perSource(fn func(source string, call int) exectest.Reply) func(inv execution.Invocation) exectest.Reply {
	var mu sync.Mutex
	calls := map[string]int{}
	return func(inv execution.Invocation) exectest.Reply {
		src := inv.Args()[0]
		mu.Lock()
		calls[src]++
		n := calls[src]
		mu.Unlock()
		return fn(src, n)
	}
}

func TestCopyOperation(t *testing.T) {
	tests := []struct {
		name        string
		configure   func(cfg *config.Config)
		reply       func() func(inv execution.Invocation) exectest.Reply
		setup       func(a *MockAuthenticator, p *MockProber)
		noAuth      bool
		wantErr     bool
		errContains string
		check       func(t *testing.T, sum *status.Summary, spy *exectest.Spy)
	}{
		{
			name: "all_tasks_copied",
			reply: func() func(execution.Invocation) exectest.Reply {
				return func(execution.Invocation) exectest.Reply { return copied }
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				require.Len(t, sum.Entries(), 2)
				assert.Equal(t, "profile", sum.Entries()[0].Name)
				assert.Equal(t, `AppData\Roaming`, sum.Entries()[1].Name)
				for _, e := range sum.Entries() {
					assert.Equal(t, execution.OutcomeSuccess, e.Outcome)
					assert.Equal(t, "files copied", e.Detail)
					assert.Equal(t, 1, e.Attempts)
				}
				assert.Equal(t, 2, spy.Count(execution.KindCopy))
				assert.Equal(t, status.ExitOK, sum.ExitCode())
			},
		},
		{
			name: "access_denied_authenticates_and_retries",
			reply: func() func(execution.Invocation) exectest.Reply {
				return perSource(func(src string, n int) exectest.Reply {
					if src == rootSource && n == 1 {
						return denied
					}
					return copied
				})
			},
			setup: func(a *MockAuthenticator, p *MockProber) {
				a.On("Authenticate", mock.Anything, share).Return(nil).Once()
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				root := sum.Entries()[0]
				assert.Equal(t, execution.OutcomeSuccess, root.Outcome)
				assert.Equal(t, 2, root.Attempts)
				assert.NoError(t, root.Err)
				assert.Equal(t, 3, spy.Count())
				assert.Equal(t, status.ExitOK, sum.ExitCode())
			},
		},
		{
			name: "still_denied_after_authenticating",
			reply: func() func(execution.Invocation) exectest.Reply {
				return perSource(func(src string, n int) exectest.Reply {
					if src == rootSource {
						return denied
					}
					return copied
				})
			},
			setup: func(a *MockAuthenticator, p *MockProber) {
				a.On("Authenticate", mock.Anything, share).Return(nil).Once()
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				root := sum.Entries()[0]
				assert.Equal(t, execution.OutcomeAccessDenied, root.Outcome)
				var authErr *auth.AuthenticationError
				require.True(t, errors.As(root.Err, &authErr), "want an authentication error, got %v", root.Err)
				assert.Equal(t, share, authErr.Share)
				assert.Equal(t, execution.OutcomeSuccess, sum.Entries()[1].Outcome, "later tasks still run")
				assert.Equal(t, status.ExitFailure, sum.ExitCode())
			},
		},
		{
			name: "authentication_exhausted",
			reply: func() func(execution.Invocation) exectest.Reply {
				return perSource(func(src string, n int) exectest.Reply {
					if src == rootSource {
						return denied
					}
					return copied
				})
			},
			setup: func(a *MockAuthenticator, p *MockProber) {
				a.On("Authenticate", mock.Anything, share).
					Return(&auth.AuthenticationError{Share: share, Attempts: 3, Last: errors.New("bad password")}).
					Once()
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				root := sum.Entries()[0]
				assert.Equal(t, 1, root.Attempts, "no retry without a connection")
				var authErr *auth.AuthenticationError
				require.True(t, errors.As(root.Err, &authErr))
				assert.Equal(t, 3, authErr.Attempts)
				assert.Equal(t, 2, spy.Count())
				assert.Len(t, sum.Failures(), 1)
			},
		},
		{
			name:   "denied_without_authenticator",
			noAuth: true,
			reply: func() func(execution.Invocation) exectest.Reply {
				return func(execution.Invocation) exectest.Reply { return denied }
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				for _, e := range sum.Entries() {
					assert.Equal(t, execution.OutcomeAccessDenied, e.Outcome)
					assert.ErrorContains(t, e.Err, "denied")
				}
				assert.Equal(t, 2, spy.Count())
			},
		},
		{
			name:        "robocopy_missing_skips_remaining_tasks",
			wantErr:     true,
			errContains: "robocopy is required",
			reply: func() func(execution.Invocation) exectest.Reply {
				return func(execution.Invocation) exectest.Reply {
					return exectest.Reply{ExitCode: -1, Err: exec.ErrNotFound}
				}
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				require.Len(t, sum.Entries(), 2)
				assert.Equal(t, 1, spy.Count(), "robocopy is only tried once")
				for _, e := range sum.Entries() {
					assert.Equal(t, execution.OutcomeToolMissing, e.Outcome)
					var missing *execution.ToolMissingError
					assert.True(t, errors.As(e.Err, &missing))
				}
				assert.Equal(t, "not attempted", sum.Entries()[1].Detail)
			},
		},
		{
			name: "partial_success_kept",
			reply: func() func(execution.Invocation) exectest.Reply {
				return func(execution.Invocation) exectest.Reply { return exectest.Reply{ExitCode: 5} }
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				root := sum.Entries()[0]
				assert.Equal(t, execution.OutcomePartialSuccess, root.Outcome)
				assert.Equal(t, 1, root.Attempts)
				assert.Equal(t, "files copied, mismatches", root.Detail)
				assert.Len(t, sum.Warnings(), 2)
				assert.Equal(t, status.ExitOK, sum.ExitCode())
			},
		},
		{
			name: "partial_success_retried",
			configure: func(cfg *config.Config) {
				cfg.Copy.RetryPartial = true
			},
			reply: func() func(execution.Invocation) exectest.Reply {
				return perSource(func(src string, n int) exectest.Reply {
					if n == 1 {
						return exectest.Reply{ExitCode: 5}
					}
					return copied
				})
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				for _, e := range sum.Entries() {
					assert.Equal(t, execution.OutcomeSuccess, e.Outcome)
					assert.Equal(t, 2, e.Attempts)
				}
				assert.Equal(t, 4, spy.Count())
			},
		},
		{
			name: "preflight_authenticates_before_copying",
			configure: func(cfg *config.Config) {
				cfg.Auth.Preflight = true
			},
			reply: func() func(execution.Invocation) exectest.Reply {
				return func(execution.Invocation) exectest.Reply { return copied }
			},
			setup: func(a *MockAuthenticator, p *MockProber) {
				p.On("Probe", mock.Anything, rootSource).Return(errors.New("access is denied")).Once()
				p.On("Probe", mock.Anything, rootSource).Return(nil).Once()
				a.On("Authenticate", mock.Anything, share).Return(nil).Once()
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				assert.Equal(t, 2, spy.Count())
				assert.True(t, sum.Succeeded())
			},
		},
		{
			name: "preflight_still_unreachable",
			configure: func(cfg *config.Config) {
				cfg.Auth.Preflight = true
			},
			setup: func(a *MockAuthenticator, p *MockProber) {
				p.On("Probe", mock.Anything, rootSource).Return(errors.New("network path not found")).Times(2)
				a.On("Authenticate", mock.Anything, share).Return(nil).Once()
			},
			wantErr:     true,
			errContains: "still not accessible",
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				assert.Zero(t, spy.Count())
				assert.Empty(t, sum.Entries())
			},
		},
		{
			name: "preflight_authentication_fails",
			configure: func(cfg *config.Config) {
				cfg.Auth.Preflight = true
			},
			setup: func(a *MockAuthenticator, p *MockProber) {
				p.On("Probe", mock.Anything, rootSource).Return(errors.New("access is denied")).Once()
				a.On("Authenticate", mock.Anything, share).
					Return(&auth.AuthenticationError{Share: share, Attempts: 3}).
					Once()
			},
			wantErr:     true,
			errContains: "authenticating to " + share,
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				assert.Zero(t, spy.Count())
			},
		},
		{
			name: "preflight_reachable",
			configure: func(cfg *config.Config) {
				cfg.Auth.Preflight = true
			},
			reply: func() func(execution.Invocation) exectest.Reply {
				return func(execution.Invocation) exectest.Reply { return copied }
			},
			setup: func(a *MockAuthenticator, p *MockProber) {
				p.On("Probe", mock.Anything, rootSource).Return(nil).Once()
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				assert.Equal(t, 2, spy.Count())
			},
		},
		{
			name: "invalid_profile",
			configure: func(cfg *config.Config) {
				cfg.Profile.Machine = ""
			},
			wantErr:     true,
			errContains: "source machine is required",
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				assert.Zero(t, spy.Count())
			},
		},
		{
			name: "dry_run_never_authenticates",
			configure: func(cfg *config.Config) {
				cfg.DryRun = true
				cfg.Auth.Preflight = true
			},
			check: func(t *testing.T, sum *status.Summary, spy *exectest.Spy) {
				assert.Zero(t, spy.Count())
				assert.Equal(t, 2, sum.SimulatedSuccesses())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := testContext(t)
			cfg := workstation(t)
			if tt.configure != nil {
				tt.configure(cfg)
			}

			spy := exectest.NewSpy()
			if tt.reply != nil {
				spy.Handle(tt.reply())
			}

			authenticator := &MockAuthenticator{}
			prober := &MockProber{}
			if tt.setup != nil {
				tt.setup(authenticator, prober)
			}

			opts := operation.Options{
				Config: cfg,
				Exec:   execution.NewEngine(spy),
				Prober: prober,
			}
			if !tt.noAuth {
				opts.Auth = authenticator
			}

			sum := status.New(cfg.DryRun)
			err := operation.NewCopyOperation(opts).Execute(ctx, sum)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
			}

			authenticator.AssertExpectations(t)
			prober.AssertExpectations(t)
			if tt.check != nil {
				tt.check(t, sum, spy)
			}
		})
	}
}

func TestCopyOperationInvalidRule(t *testing.T) {
	ctx, _ := testContext(t)
	cfg := workstation(t)
	cfg.Rules = append(cfg.Rules, config.RuleArgs{Pattern: `..\Administrator`, Action: "include"})

	spy := exectest.NewSpy()
	err := operation.NewCopyOperation(operation.Options{Config: cfg, Exec: execution.NewEngine(spy)}).
		Execute(ctx, status.New(false))
	require.Error(t, err)

	var cfgErr *plan.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "want a configuration error, got %v", err)
	assert.Equal(t, 2, cfgErr.Index)
	assert.Zero(t, spy.Count())
}
