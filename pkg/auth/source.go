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

package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/walteh/profilesync/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// ErrNoCredentials is returned by a source with nothing left to offer
var ErrNoCredentials = errors.Base("no credentials available")

// 💬 PromptSource asks the operator for credentials on every attempt
type PromptSource struct {
	Prompter log.Prompter
	Domain   string // used when the operator enters a bare user name
	Username string // offered as the default answer
}

var _ CredentialSource = (*PromptSource)(nil)

func (p *PromptSource) Credentials(ctx context.Context, share string, attempt int) (Credentials, error) {
	def := p.Username
	if def != "" && p.Domain != "" {
		def = p.Domain + `\` + p.Username
	}

	log.FromContext(ctx).Warningf("access to %s was denied, enter credentials (attempt %d)", share, attempt)

	account, err := p.Prompter.Text(ctx, fmt.Sprintf("Username for %s", share), def)
	if err != nil {
		return Credentials{}, errors.Errorf("prompting for username: %w", err)
	}
	domain, user := ParseAccount(account)
	if user == "" {
		return Credentials{}, errors.WithDetails(ErrNoCredentials, "share", share)
	}
	if domain == "" {
		domain = p.Domain
	}

	password, err := p.Prompter.Secret(ctx, "Password")
	if err != nil {
		return Credentials{}, errors.Errorf("prompting for password: %w", err)
	}

	return Credentials{Domain: domain, Username: user, Password: password}, nil
}

// 📌 StaticSource offers fixed credentials on the first attempt and defers to Next afterwards.
// Once a share refuses them they are not offered again for the life of the source.
type StaticSource struct {
	Creds Credentials
	Next  CredentialSource

	mu    sync.Mutex
	spent bool
}

var (
	_ CredentialSource  = (*StaticSource)(nil)
	_ RejectionListener = (*StaticSource)(nil)
)

func (s *StaticSource) usable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Creds.Username != "" && !s.spent
}

func (s *StaticSource) Credentials(ctx context.Context, share string, attempt int) (Credentials, error) {
	if attempt == 1 && s.usable() {
		return s.Creds, nil
	}
	if s.Next == nil {
		return Credentials{}, errors.WithDetails(ErrNoCredentials, "share", share, "attempt", attempt)
	}
	return s.Next.Credentials(ctx, share, attempt)
}

// Rejected retires the configured credentials after a failed connect
func (s *StaticSource) Rejected(share string, creds Credentials) {
	s.mu.Lock()
	if creds == s.Creds {
		s.spent = true
	}
	s.mu.Unlock()

	if l, ok := s.Next.(RejectionListener); ok {
		l.Rejected(share, creds)
	}
}
