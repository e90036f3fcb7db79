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

package log

import (
	"context"
	"strings"
	"sync"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"
)

// 💬 Prompter asks the operator for input
type Prompter interface {
	Text(ctx context.Context, prompt, def string) (string, error)
	Secret(ctx context.Context, prompt string) (string, error)
	Confirm(ctx context.Context, prompt string, def bool) (bool, error)
}

// 🖥️ TerminalPrompter prompts on the terminal with pterm
type TerminalPrompter struct{}

var _ Prompter = (*TerminalPrompter)(nil)

func (p *TerminalPrompter) Text(ctx context.Context, prompt, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	in := pterm.DefaultInteractiveTextInput
	if def != "" {
		in = *in.WithDefaultValue(def)
	}
	v, err := in.Show(prompt)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", strings.ToLower(prompt), err)
	}
	return strings.TrimSpace(v), nil
}

func (p *TerminalPrompter) Secret(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show(prompt)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", strings.ToLower(prompt), err)
	}
	return v, nil
}

func (p *TerminalPrompter) Confirm(ctx context.Context, prompt string, def bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := pterm.DefaultInteractiveConfirm.WithDefaultValue(def).Show(prompt)
	if err != nil {
		return false, errors.Errorf("confirming: %w", err)
	}
	return ok, nil
}

// ErrNoInput is returned by a ScriptedPrompter that ran out of answers
var ErrNoInput = errors.Base("no scripted input left")

// 📜 ScriptedPrompter answers prompts from a fixed list, for unattended runs and tests
type ScriptedPrompter struct {
	mu      sync.Mutex
	answers []string
	prompts []string
}

var _ Prompter = (*ScriptedPrompter)(nil)

// 🏭 NewScriptedPrompter creates a prompter that returns answers in order
func NewScriptedPrompter(answers ...string) *ScriptedPrompter {
	return &ScriptedPrompter{answers: answers}
}

func (p *ScriptedPrompter) next(prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	if len(p.answers) == 0 {
		return "", errors.WithDetails(ErrNoInput, "prompt", prompt)
	}
	v := p.answers[0]
	p.answers = p.answers[1:]
	return v, nil
}

func (p *ScriptedPrompter) Text(ctx context.Context, prompt, def string) (string, error) {
	v, err := p.next(prompt)
	if err != nil {
		return "", err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

func (p *ScriptedPrompter) Secret(ctx context.Context, prompt string) (string, error) {
	return p.next(prompt)
}

func (p *ScriptedPrompter) Confirm(ctx context.Context, prompt string, def bool) (bool, error) {
	v, err := p.next(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "true":
		return true, nil
	case "n", "no", "false":
		return false, nil
	default:
		return def, nil
	}
}

// Prompts returns every prompt shown so far
func (p *ScriptedPrompter) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}
