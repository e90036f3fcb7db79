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

package status

import (
	"sync"
	"time"

	"github.com/walteh/profilesync/pkg/execution"
)

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Kinds recorded beside the execution kinds
const (
	KindPostProcess execution.Kind = "post-process"
)

// 📄 Entry is the recorded outcome of one task or job
type Entry struct {
	Kind      execution.Kind
	Name      string
	Outcome   execution.Outcome
	Simulated bool
	ExitCode  int
	Duration  time.Duration
	Attempts  int
	Detail    string
	Err       error
}

// OK reports whether the entry counts toward a successful run
func (e Entry) OK() bool {
	return e.Outcome.OK() && e.Err == nil
}

// FromResult builds an entry from an execution result
func FromResult(kind execution.Kind, name string, res execution.Result) Entry {
	return Entry{
		Kind:      kind,
		Name:      name,
		Outcome:   res.Outcome,
		Simulated: res.Simulated,
		ExitCode:  res.ExitCode,
		Duration:  res.Duration,
		Attempts:  1,
		Err:       res.Err,
	}
}

// 📊 Summary accumulates entries for one run
type Summary struct {
	mu       sync.RWMutex
	dryRun   bool
	started  time.Time
	finished time.Time
	entries  []Entry
}

// 🏭 New creates an empty summary
func New(dryRun bool) *Summary {
	return &Summary{dryRun: dryRun, started: time.Now()}
}

// DryRun reports whether the run was simulated
func (s *Summary) DryRun() bool {
	return s.dryRun
}

// Add records an entry
func (s *Summary) Add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Finish stamps the end of the run
func (s *Summary) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = time.Now()
}

// Started returns when the summary was created
func (s *Summary) Started() time.Time {
	return s.started
}

// Elapsed returns the run duration, up to now when the run is still going
func (s *Summary) Elapsed() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.finished.IsZero() {
		return time.Since(s.started)
	}
	return s.finished.Sub(s.started)
}

// Entries returns a copy of the recorded entries
func (s *Summary) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Counts returns how many entries ended with each outcome
func (s *Summary) Counts() map[execution.Outcome]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[execution.Outcome]int{}
	for _, e := range s.entries {
		out[e.Outcome]++
	}
	return out
}

// SimulatedSuccesses counts entries that succeeded without running anything
func (s *Summary) SimulatedSuccesses() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.Simulated && e.OK() {
			n++
		}
	}
	return n
}

// Failures returns the entries that did not succeed
func (s *Summary) Failures() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if !e.OK() {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns the partially successful entries
func (s *Summary) Warnings() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.OK() && e.Outcome == execution.OutcomePartialSuccess {
			out = append(out, e)
		}
	}
	return out
}

// Succeeded reports whether every entry succeeded
func (s *Summary) Succeeded() bool {
	return len(s.Failures()) == 0
}

// ExitCode maps the summary to the process exit status
func (s *Summary) ExitCode() int {
	if s.Succeeded() {
		return ExitOK
	}
	return ExitFailure
}
