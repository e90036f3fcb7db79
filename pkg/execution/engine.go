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
	"bytes"
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔧 ToolMissingError reports an executable that could not be located
type ToolMissingError struct {
	Name string
	Err  error
}

func (e *ToolMissingError) Error() string {
	if e.Err == nil {
		return "tool not found: " + e.Name
	}
	return "tool not found: " + e.Name + ": " + e.Err.Error()
}

func (e *ToolMissingError) Unwrap() error {
	return e.Err
}

// 🚀 Spawner starts a process and waits for it. A non-zero exit is not an error;
// err is only set when the process could not be run at all.
type Spawner interface {
	Spawn(ctx context.Context, inv Invocation) (exitCode int, output []byte, err error)
}

// Executor runs invocations and reports classified results
type Executor interface {
	Execute(ctx context.Context, inv Invocation) Result
}

// 🏃 Engine executes invocation descriptors, honoring their simulate tag
type Engine struct {
	spawner Spawner
}

var _ Executor = (*Engine)(nil)

// 🏭 NewEngine creates an engine backed by the given spawner
func NewEngine(spawner Spawner) *Engine {
	if spawner == nil {
		spawner = &ProcessSpawner{}
	}
	return &Engine{spawner: spawner}
}

// Execute runs inv and classifies the result. Simulated invocations never reach the spawner.
func (e *Engine) Execute(ctx context.Context, inv Invocation) Result {
	logger := zerolog.Ctx(ctx).With().Str("kind", string(inv.Kind())).Str("tool", inv.Name()).Logger()

	if inv.Simulate() {
		logger.Info().Str("command", inv.String()).Msg("[dry run] command not executed")
		return Result{
			Outcome:   OutcomeSuccess,
			Simulated: true,
		}
	}

	logger.Info().Str("command", inv.String()).Msg("running command")

	start := time.Now()
	code, output, err := e.spawner.Spawn(ctx, inv)
	res := Result{
		ExitCode: code,
		Output:   output,
		Duration: time.Since(start),
	}

	if err != nil {
		if notFound(err) {
			res.Outcome = OutcomeToolMissing
			res.Err = &ToolMissingError{Name: inv.Name(), Err: err}
		} else {
			res.Outcome = OutcomeFailed
			res.Err = errors.Errorf("running %s: %w", inv.Name(), err)
		}
		logger.Error().Err(res.Err).Msg("command could not be run")
		return res
	}

	res.Outcome = inv.Classify(code, output)

	logger.Info().
		Int("exit_code", code).
		Str("outcome", res.Outcome.String()).
		Dur("duration", res.Duration).
		Msg("command finished")

	return res
}

// notFound reports a failed executable lookup. Other start failures, such as
// a missing working directory, are not a missing tool.
func notFound(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) || errors.Is(err, exec.ErrNotFound)
}

// 🖥️ ProcessSpawner runs invocations as child processes via os/exec
type ProcessSpawner struct{}

var _ Spawner = (*ProcessSpawner)(nil)

func (p *ProcessSpawner) Spawn(ctx context.Context, inv Invocation) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, inv.Name(), inv.Args()...)
	cmd.Dir = inv.Dir()

	out := &lineWriter{logger: zerolog.Ctx(ctx), tool: inv.Name()}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	out.flush()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), out.Bytes(), nil
		}
		return -1, out.Bytes(), err
	}

	return 0, out.Bytes(), nil
}

// lineWriter keeps the combined output and logs each complete line as it arrives
type lineWriter struct {
	mu      sync.Mutex
	logger  *zerolog.Logger
	tool    string
	all     bytes.Buffer
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.all.Write(p)
	w.partial = append(w.partial, p...)
	for {
		idx := bytes.IndexByte(w.partial, '\n')
		if idx < 0 {
			break
		}
		w.emit(w.partial[:idx])
		w.partial = w.partial[idx+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.emit(w.partial)
		w.partial = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	w.logger.Debug().Str("tool", w.tool).Msg(string(line))
}

func (w *lineWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.all.Bytes()...)
}
