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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/walteh/profilesync/pkg/execution"
	"gitlab.com/tozd/go/errors"
)

// 🎨 Display configuration
const (
	entryIndent  = 4  // spaces to indent entries
	nameWidth    = 35 // width for the entry name
	kindWidth    = 16 // width for the entry kind
	outcomeWidth = 15 // width for the outcome text
)

var outcomeOrder = []execution.Outcome{
	execution.OutcomeSuccess,
	execution.OutcomePartialSuccess,
	execution.OutcomeAccessDenied,
	execution.OutcomeToolMissing,
	execution.OutcomeFailed,
	execution.OutcomeUnknown,
}

// 🎯 FormatEntry formats one entry for display
func FormatEntry(e Entry) string {
	var prefix string
	switch {
	case e.OK() && e.Outcome == execution.OutcomePartialSuccess:
		prefix = color.YellowString("!")
	case e.OK():
		prefix = color.GreenString("✓")
	default:
		prefix = color.RedString("✗")
	}

	outcome := e.Outcome.String()
	if e.Simulated {
		outcome += " (dry run)"
	}

	line := fmt.Sprintf("%s%s %-*s %-*s %-*s",
		strings.Repeat(" ", entryIndent),
		prefix,
		nameWidth, e.Name,
		kindWidth, string(e.Kind),
		outcomeWidth, outcome,
	)

	var extra []string
	if !e.Simulated && e.Duration > 0 {
		extra = append(extra, e.Duration.Round(time.Millisecond).String())
	}
	if e.Attempts > 1 {
		extra = append(extra, fmt.Sprintf("%d attempts", e.Attempts))
	}
	if e.Detail != "" {
		extra = append(extra, e.Detail)
	}
	if len(extra) > 0 {
		line += " " + color.New(color.Faint).Sprint(strings.Join(extra, ", "))
	}
	return strings.TrimRight(line, " ")
}

// 🎯 FormatTotals formats the outcome counts on one line
func FormatTotals(counts map[execution.Outcome]int) string {
	var parts []string
	for _, o := range outcomeOrder {
		if n := counts[o]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, o))
		}
	}
	if len(parts) == 0 {
		return "nothing to do"
	}
	return strings.Join(parts, ", ")
}

// 🎯 FormatError formats an error message with emoji
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}

// 📋 Render writes the summary table, totals and failure details
func (s *Summary) Render(w io.Writer) {
	entries := s.Entries()

	title := "summary"
	if s.dryRun {
		title = "summary (dry run, nothing was changed)"
	}
	fmt.Fprintf(w, "\n%s %s\n", color.New(color.FgMagenta).Sprint("◆"), color.New(color.Bold).Sprint(title))

	for _, e := range entries {
		fmt.Fprintln(w, FormatEntry(e))
	}

	fmt.Fprintf(w, "\n%s\n", FormatTotals(s.Counts()))
	if n := s.SimulatedSuccesses(); n > 0 {
		fmt.Fprintf(w, "%d simulated successes\n", n)
	}

	for _, e := range s.Failures() {
		if e.Err != nil {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", entryIndent), color.New(color.FgRed).Sprint(FormatError(errors.Errorf("%s: %w", e.Name, e.Err))))
		}
	}

	if s.Succeeded() {
		fmt.Fprintln(w, color.GreenString("✅ done in %s", s.Elapsed().Round(time.Millisecond)))
	} else {
		fmt.Fprintln(w, color.RedString("❌ %d of %d failed", len(s.Failures()), len(entries)))
	}
}
