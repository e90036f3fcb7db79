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

// Package plan turns ordered include/exclude rules into the copy tasks
// for one profile transfer.
package plan

import (
	"fmt"
	"strings"
)

// 🗂️ Scope names the tree a rule applies to
type Scope string

const (
	ScopeRoot     Scope = "root"     // the profile folder itself, AppData excluded
	ScopeAppData  Scope = "appdata"  // paths relative to <profile>\AppData
	ScopePrograms Scope = "programs" // paths relative to the Program Files source
)

func (s Scope) order() int {
	switch s {
	case ScopeRoot:
		return 0
	case ScopeAppData:
		return 1
	case ScopePrograms:
		return 2
	default:
		return 3
	}
}

// ⚖️ Disposition is what a rule decides for the directories it matches
type Disposition string

const (
	Include Disposition = "include"
	Exclude Disposition = "exclude"
)

// 📏 SyncRule is one ordered include/exclude entry.
// Pattern is a folder path or a doublestar glob; both \ and / separate segments.
// An empty Scope is inferred from the pattern: a leading AppData\ selects ScopeAppData.
type SyncRule struct {
	Pattern     string
	Disposition Disposition
	Scope       Scope
}

func (r SyncRule) String() string {
	scope := r.Scope
	if scope == "" {
		scope = "auto"
	}
	return fmt.Sprintf("%s %q (%s)", r.Disposition, r.Pattern, scope)
}

// IncludeRule is shorthand for an include rule with an inferred scope
func IncludeRule(pattern string) SyncRule {
	return SyncRule{Pattern: pattern, Disposition: Include}
}

// ExcludeRule is shorthand for an exclude rule with an inferred scope
func ExcludeRule(pattern string) SyncRule {
	return SyncRule{Pattern: pattern, Disposition: Exclude}
}

// 📦 CopyTask is one subtree copy produced by the resolver
type CopyTask struct {
	Name        string
	Scope       Scope
	RelPath     string // relative to the scope base, \ separated; "." for the profile root
	Source      string
	Destination string
	Rules       []SyncRule // rules that matched this subtree
	ExcludeDirs []string   // full source paths of excluded sub-directories
	Retries     int
}

func (t CopyTask) String() string {
	return fmt.Sprintf("%s: %s -> %s", t.Name, t.Source, t.Destination)
}

// 🧭 Decision records how one candidate directory was resolved
type Decision struct {
	Scope       Scope
	RelPath     string
	Disposition Disposition
	Rule        int // index of the deciding rule, -1 when the scope default applied
}

func (d Decision) String() string {
	by := "default"
	if d.Rule >= 0 {
		by = fmt.Sprintf("rule %d", d.Rule)
	}
	return fmt.Sprintf("%s %s:%s (%s)", d.Disposition, d.Scope, d.RelPath, by)
}

// ❌ ConfigurationError reports a rule or profile that cannot be resolved.
// Index is -1 when the profile itself is invalid.
type ConfigurationError struct {
	Index  int
	Rule   SyncRule
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Index < 0 {
		return "invalid profile: " + e.Reason
	}
	return fmt.Sprintf("rule %d %s: %s", e.Index, e.Rule, e.Reason)
}

func ruleError(index int, rule SyncRule, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Index: index, Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
