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

package execution

import (
	"strings"
	"time"
)

// 📊 Outcome classifies how an invocation ended
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess         // tool reported success (or the run was simulated)
	OutcomePartialSuccess  // tool succeeded but reported mismatches worth a warning
	OutcomeAccessDenied    // tool could not reach the source or destination
	OutcomeToolMissing     // executable could not be located
	OutcomeFailed          // tool ran and reported failure
)

// String returns a string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialSuccess:
		return "partial"
	case OutcomeAccessDenied:
		return "access-denied"
	case OutcomeToolMissing:
		return "tool-missing"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OK reports whether the outcome counts toward a successful run.
func (o Outcome) OK() bool {
	return o == OutcomeSuccess || o == OutcomePartialSuccess
}

// 🏷️ Kind tells what an invocation does
type Kind string

const (
	KindCopy           Kind = "copy"
	KindRegistryExport Kind = "registry-export"
	KindConnect        Kind = "connect"
	KindProbe          Kind = "probe"
)

// Classifier maps a finished process to an outcome.
type Classifier func(exitCode int, output []byte) Outcome

// DefaultClassifier treats zero as success and everything else as failure.
func DefaultClassifier(exitCode int, _ []byte) Outcome {
	if exitCode == 0 {
		return OutcomeSuccess
	}
	return OutcomeFailed
}

// 📦 Invocation describes one external process run. It is immutable once built.
type Invocation struct {
	kind     Kind
	name     string
	args     []string
	dir      string
	simulate bool
	classify Classifier
	secrets  []string
}

// InvocationOption configures an Invocation at construction time
type InvocationOption func(*Invocation)

// WithDir sets the working directory
func WithDir(dir string) InvocationOption {
	return func(inv *Invocation) {
		inv.dir = dir
	}
}

// WithSimulate tags the invocation for simulation
func WithSimulate(simulate bool) InvocationOption {
	return func(inv *Invocation) {
		inv.simulate = simulate
	}
}

// WithClassifier sets tool-specific exit code semantics
func WithClassifier(c Classifier) InvocationOption {
	return func(inv *Invocation) {
		inv.classify = c
	}
}

// WithSecret masks value wherever the invocation is rendered for display
func WithSecret(value string) InvocationOption {
	return func(inv *Invocation) {
		if value != "" {
			inv.secrets = append(inv.secrets, value)
		}
	}
}

// 🏭 NewInvocation creates an invocation descriptor
func NewInvocation(kind Kind, name string, args []string, opts ...InvocationOption) Invocation {
	inv := Invocation{
		kind:     kind,
		name:     name,
		args:     append([]string(nil), args...),
		classify: DefaultClassifier,
	}
	for _, opt := range opts {
		opt(&inv)
	}
	return inv
}

func (inv Invocation) Kind() Kind     { return inv.kind }
func (inv Invocation) Name() string   { return inv.name }
func (inv Invocation) Dir() string    { return inv.dir }
func (inv Invocation) Simulate() bool { return inv.simulate }

// Args returns a copy of the argument list
func (inv Invocation) Args() []string {
	return append([]string(nil), inv.args...)
}

// Classify maps an exit code using the invocation's classifier
func (inv Invocation) Classify(exitCode int, output []byte) Outcome {
	if inv.classify == nil {
		return DefaultClassifier(exitCode, output)
	}
	return inv.classify(exitCode, output)
}

// String renders the command line for logs, quoting arguments with spaces and masking secrets
func (inv Invocation) String() string {
	parts := make([]string, 0, len(inv.args)+1)
	parts = append(parts, quote(inv.name))
	for _, a := range inv.args {
		for _, s := range inv.secrets {
			if a == s {
				a = "********"
			}
		}
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

// 📋 Result is what the engine reports for one invocation
type Result struct {
	Outcome   Outcome
	Simulated bool
	ExitCode  int
	Output    []byte
	Duration  time.Duration
	Err       error
}
