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

// Package auth connects to remote shares with a bounded number of credential attempts.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔑 Credentials for one connection attempt
type Credentials struct {
	Domain   string
	Username string
	Password string
}

// Account renders DOMAIN\user, or just the user without a domain
func (c Credentials) Account() string {
	if c.Domain == "" {
		return c.Username
	}
	return c.Domain + `\` + c.Username
}

// ParseAccount splits DOMAIN\user and user@domain forms
func ParseAccount(account string) (domain, user string) {
	account = strings.TrimSpace(account)
	if d, u, ok := strings.Cut(account, `\`); ok {
		return d, u
	}
	if u, d, ok := strings.Cut(account, "@"); ok {
		return d, u
	}
	return "", account
}

// 📥 CredentialSource supplies credentials for an attempt. Attempts start at 1.
type CredentialSource interface {
	Credentials(ctx context.Context, share string, attempt int) (Credentials, error)
}

// RejectionListener is implemented by sources that want to hear about credentials
// the share refused, so they never offer them again
type RejectionListener interface {
	Rejected(share string, creds Credentials)
}

// 🔌 Connector opens an authenticated connection to a share
type Connector interface {
	Connect(ctx context.Context, share string, creds Credentials) error
}

// 🚦 State is a step of the authentication state machine
type State int

const (
	StateIdle State = iota
	StatePrompting
	StateConnecting
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrompting:
		return "prompting"
	case StateConnecting:
		return "connecting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Transition is reported to observers on every state change
type Transition struct {
	Share   string
	Attempt int
	From    State
	To      State
	Err     error
}

// ❌ AuthenticationError is returned once every attempt has failed
type AuthenticationError struct {
	Share    string
	Attempts int
	Last     error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("authentication to %s failed after %d attempts", e.Share, e.Attempts)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error {
	return e.Last
}

// 🛡️ Mediator drives Idle → Prompting → Connecting → Succeeded | Exhausted.
// Each attempt asks the source afresh; nothing is cached between attempts or calls.
type Mediator struct {
	maxAttempts int
	source      CredentialSource
	connector   Connector
	observer    func(Transition)
}

// MediatorOption configures a Mediator
type MediatorOption func(*Mediator)

// WithObserver receives every state transition
func WithObserver(fn func(Transition)) MediatorOption {
	return func(m *Mediator) {
		m.observer = fn
	}
}

// 🏭 NewMediator creates a mediator allowing maxAttempts attempts per call (at least one)
func NewMediator(maxAttempts int, source CredentialSource, connector Connector, opts ...MediatorOption) *Mediator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	m := &Mediator{
		maxAttempts: maxAttempts,
		source:      source,
		connector:   connector,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MaxAttempts returns the attempt bound
func (m *Mediator) MaxAttempts() int {
	return m.maxAttempts
}

func (m *Mediator) move(state *State, to State, share string, attempt int, err error) {
	t := Transition{Share: share, Attempt: attempt, From: *state, To: to, Err: err}
	*state = to
	if m.observer != nil {
		m.observer(t)
	}
}

// 🔐 Authenticate connects to share, making at most MaxAttempts attempts.
// It returns *AuthenticationError when every attempt failed.
func (m *Mediator) Authenticate(ctx context.Context, share string) error {
	logger := zerolog.Ctx(ctx).With().Str("share", share).Logger()

	state := StateIdle
	var last error

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("authenticating to %s: %w", share, err)
		}

		m.move(&state, StatePrompting, share, attempt, nil)
		creds, err := m.source.Credentials(ctx, share, attempt)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Errorf("authenticating to %s: %w", share, ctx.Err())
			}
			last = errors.Errorf("reading credentials: %w", err)
			logger.Warn().Err(err).Int("attempt", attempt).Msg("no credentials for attempt")
			continue
		}

		m.move(&state, StateConnecting, share, attempt, nil)
		if err := m.connector.Connect(ctx, share, creds); err != nil {
			if ctx.Err() != nil {
				return errors.Errorf("authenticating to %s: %w", share, ctx.Err())
			}
			last = err
			logger.Warn().Err(err).Int("attempt", attempt).Str("account", creds.Account()).Msg("connection attempt failed")
			if l, ok := m.source.(RejectionListener); ok {
				l.Rejected(share, creds)
			}
			continue
		}

		m.move(&state, StateSucceeded, share, attempt, nil)
		logger.Info().Int("attempt", attempt).Str("account", creds.Account()).Msg("connected to share")
		return nil
	}

	m.move(&state, StateExhausted, share, m.maxAttempts, last)
	logger.Error().Err(last).Int("attempts", m.maxAttempts).Msg("authentication exhausted")
	return &AuthenticationError{Share: share, Attempts: m.maxAttempts, Last: last}
}
