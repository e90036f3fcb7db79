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

// Package exectest provides a recording Spawner for tests.
package exectest

import (
	"context"
	"sync"

	"github.com/walteh/profilesync/pkg/execution"
)

// Reply is a canned response for one spawn
type Reply struct {
	ExitCode int
	Output   string
	Err      error
}

// 🕵️ Spy records every spawn request and answers from a handler
type Spy struct {
	mu      sync.Mutex
	calls   []execution.Invocation
	handler func(inv execution.Invocation) Reply
}

var _ execution.Spawner = (*Spy)(nil)

// NewSpy creates a spy that answers every spawn with exit code 0
func NewSpy() *Spy {
	return &Spy{}
}

// Handle sets the function used to answer spawns
func (s *Spy) Handle(fn func(inv execution.Invocation) Reply) *Spy {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
	return s
}

// Spawn implements execution.Spawner
func (s *Spy) Spawn(ctx context.Context, inv execution.Invocation) (int, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, inv)
	handler := s.handler
	s.mu.Unlock()

	if handler == nil {
		return 0, nil, nil
	}
	r := handler(inv)
	return r.ExitCode, []byte(r.Output), r.Err
}

// Calls returns the recorded invocations in order
func (s *Spy) Calls() []execution.Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]execution.Invocation(nil), s.calls...)
}

// Count returns the number of spawns, optionally filtered by kind
func (s *Spy) Count(kinds ...execution.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(kinds) == 0 {
		return len(s.calls)
	}
	n := 0
	for _, c := range s.calls {
		for _, k := range kinds {
			if c.Kind() == k {
				n++
				break
			}
		}
	}
	return n
}
