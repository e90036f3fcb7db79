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

// Package log prints operator-facing progress and mirrors it to zerolog.
package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	taskIndent  = 4  // spaces to indent task entries
	nameWidth   = 35 // width for the task name
	kindWidth   = 16 // width for the task kind
	statusWidth = 15 // width for the outcome text
)

// 🎯 TaskState is where a task line stands
type TaskState int

const (
	TaskStarted TaskState = iota
	TaskSucceeded
	TaskWarned
	TaskFailed
	TaskSkipped
)

// 📦 TaskLine is one progress line for a copy task, export job or post-processing step
type TaskLine struct {
	Name      string
	Kind      string
	State     TaskState
	Status    string // outcome text shown in the status column
	Simulated bool
	Detail    string
}

// 🎯 Logger prints progress to the operator console and mirrors every line to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	tasks   int
}

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	if console == nil {
		console = io.Discard
	}
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context. Without one, console output is discarded.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return New(io.Discard, *zerolog.Ctx(ctx))
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatTask formats a task line for display
func formatTask(line TaskLine) string {
	var symbol string
	switch line.State {
	case TaskStarted:
		symbol = color.CyanString("→")
	case TaskSucceeded:
		symbol = color.GreenString("✓")
	case TaskWarned:
		symbol = color.YellowString("!")
	case TaskFailed:
		symbol = color.RedString("✗")
	default:
		symbol = color.HiBlackString("-")
	}

	status := line.Status
	if line.Simulated {
		status += " (dry run)"
	}

	out := fmt.Sprintf("%*s%s %-*s %s %-*s",
		taskIndent, "",
		symbol,
		nameWidth, line.Name,
		color.New(color.FgBlue).Sprintf("%-*s", kindWidth, line.Kind),
		statusWidth, status)
	if line.Detail != "" {
		out += " " + color.New(color.Faint).Sprint(line.Detail)
	}
	return out
}

// 📝 Task prints a task line
func (l *Logger) Task(line TaskLine) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if line.State != TaskStarted {
		l.tasks++
	}
	fmt.Fprintln(l.console, formatTask(line))

	ev := l.zlog.Info()
	switch line.State {
	case TaskWarned:
		ev = l.zlog.Warn()
	case TaskFailed:
		ev = l.zlog.Error()
	}
	ev.Str("task", line.Name).
		Str("kind", line.Kind).
		Str("status", line.Status).
		Bool("simulated", line.Simulated).
		Str("detail", line.Detail).
		Msg("task")
}

// 📝 Tasks returns how many finished task lines were printed
func (l *Logger) Tasks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("profilesync")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Section starts a group of task lines
func (l *Logger) Section(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s\n", color.New(color.FgMagenta).Sprint("◆"), color.New(color.Bold).Sprint(title))
	l.zlog.Info().Str("section", title).Msg("starting section")
}

func (l *Logger) print(p pterm.PrefixPrinter, prefix string, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p.WithPrefix(pterm.Prefix{Text: prefix, Style: p.Prefix.Style}).WithWriter(l.console).Println(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.print(pterm.Success, "✅", msg)
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.print(pterm.Warning, "⚠️", msg)
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.print(pterm.Error, "❌", msg)
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.print(pterm.Info, "ℹ️", msg)
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}

// Console returns the writer used for operator output
func (l *Logger) Console() io.Writer {
	return l.console
}
