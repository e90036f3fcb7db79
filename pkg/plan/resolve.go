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

package plan

import (
	"io/fs"
	"iter"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// ResolveOption configures Resolve
type ResolveOption func(*resolver)

// WithSourceFS lists the profile folder so glob rules can expand to real directories.
// The file system must be rooted at the profile folder.
func WithSourceFS(fsys fs.FS) ResolveOption {
	return func(r *resolver) {
		r.profileFS = fsys
	}
}

// WithProgramsFS lists the Program Files source for programs-scope globs
func WithProgramsFS(fsys fs.FS) ResolveOption {
	return func(r *resolver) {
		r.programsFS = fsys
	}
}

type resolver struct {
	profileFS  fs.FS
	programsFS fs.FS
}

// compiled rule: scope resolved, pattern normalized to lower-case slash form
type compiled struct {
	rule    SyncRule
	scope   Scope
	rel     string // display form, slash separated, original case
	pattern string
}

type candidate struct {
	scope       Scope
	key         string // lower-case slash form
	rel         string // display form
	disposition Disposition
	rule        int
}

// 📋 Plan is the immutable result of resolving rules against a profile
type Plan struct {
	spec       ProfileSpec
	rules      []compiled
	candidates []candidate
}

// 🎯 Resolve decides every candidate directory and returns the plan.
// The last matching rule wins; unmatched root directories are included,
// unmatched AppData and programs directories are excluded.
func Resolve(spec ProfileSpec, rules []SyncRule, opts ...ResolveOption) (*Plan, error) {
	r := &resolver{}
	for _, opt := range opts {
		opt(r)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	comp := make([]compiled, 0, len(rules))
	for i, rule := range rules {
		c, err := compile(spec, i, rule)
		if err != nil {
			return nil, err
		}
		comp = append(comp, c)
	}

	seen := map[string]bool{}
	var cands []candidate
	add := func(scope Scope, rel string) {
		rel = strings.Trim(rel, "/")
		if rel == "" {
			rel = "."
		}
		key := string(scope) + ":" + strings.ToLower(rel)
		if seen[key] {
			return
		}
		seen[key] = true
		cands = append(cands, candidate{scope: scope, key: strings.ToLower(rel), rel: rel})
	}

	add(ScopeRoot, ".")
	for _, s := range spec.appDataScopes() {
		add(ScopeAppData, s)
	}

	for _, c := range comp {
		if !isGlob(c.rel) {
			add(c.scope, c.rel)
			continue
		}
		matches, err := r.expand(spec, c)
		if err != nil {
			return nil, errors.Errorf("expanding %q: %w", c.rule.Pattern, err)
		}
		for _, m := range matches {
			add(c.scope, m)
		}
	}

	for i := range cands {
		cands[i].disposition, cands[i].rule = decide(comp, cands[i])
	}

	slices.SortStableFunc(cands, func(a, b candidate) int {
		if d := a.scope.order() - b.scope.order(); d != 0 {
			return d
		}
		return strings.Compare(a.key, b.key)
	})

	return &Plan{spec: spec, rules: comp, candidates: cands}, nil
}

func compile(spec ProfileSpec, index int, rule SyncRule) (compiled, error) {
	switch rule.Disposition {
	case Include, Exclude:
	default:
		return compiled{}, ruleError(index, rule, "unknown disposition %q", rule.Disposition)
	}

	rel := strings.Trim(strings.ReplaceAll(strings.TrimSpace(rule.Pattern), `\`, "/"), "/")
	rel = strings.TrimPrefix(rel, "./")
	if rel == "" {
		return compiled{}, ruleError(index, rule, "pattern is empty")
	}
	if slices.Contains(strings.Split(rel, "/"), "..") {
		return compiled{}, ruleError(index, rule, "pattern must not leave its scope")
	}

	underAppData := strings.EqualFold(rel, appDataDir) || strings.HasPrefix(strings.ToLower(rel), strings.ToLower(appDataDir)+"/")

	scope := rule.Scope
	switch scope {
	case "":
		scope = ScopeRoot
		if underAppData {
			scope = ScopeAppData
		}
	case ScopeRoot, ScopeAppData, ScopePrograms:
	default:
		return compiled{}, ruleError(index, rule, "unknown scope %q", rule.Scope)
	}

	switch scope {
	case ScopeRoot:
		if underAppData {
			return compiled{}, ruleError(index, rule, "AppData is only reachable through appdata rules")
		}
	case ScopeAppData:
		if underAppData {
			rel = strings.TrimLeft(rel[len(appDataDir):], "/")
		}
		if rel == "" || rel == "." {
			return compiled{}, ruleError(index, rule, "pattern must name a folder inside AppData")
		}
		first, _, _ := strings.Cut(rel, "/")
		if !isGlob(first) && !spec.HasAppDataScope(first) {
			return compiled{}, ruleError(index, rule, "AppData scope %q is not configured", first)
		}
	case ScopePrograms:
		if !spec.HasPrograms() {
			return compiled{}, ruleError(index, rule, "no Program Files source is configured")
		}
		if rel == "." {
			return compiled{}, ruleError(index, rule, "pattern must name a folder inside Program Files")
		}
	}

	pattern := strings.ToLower(rel)
	if !doublestar.ValidatePattern(pattern) {
		return compiled{}, ruleError(index, rule, "invalid glob pattern")
	}

	return compiled{rule: rule, scope: scope, rel: rel, pattern: pattern}, nil
}

func (r *resolver) expand(spec ProfileSpec, c compiled) ([]string, error) {
	fsys := r.profileFS
	prefix := ""
	switch c.scope {
	case ScopeAppData:
		prefix = appDataDir + "/"
	case ScopePrograms:
		fsys = r.programsFS
	}
	if fsys == nil {
		return nil, nil
	}

	matches, err := doublestar.Glob(fsys, prefix+c.rel)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := fs.Stat(fsys, m)
		if err != nil || !info.IsDir() {
			continue
		}
		rel := strings.TrimPrefix(m, prefix)
		if c.scope == ScopeRoot && strings.EqualFold(strings.Split(rel, "/")[0], appDataDir) {
			continue
		}
		if c.scope == ScopeAppData && !spec.HasAppDataScope(strings.Split(rel, "/")[0]) {
			continue
		}
		out = append(out, rel)
	}
	return out, nil
}

// decide applies the last rule that matches the candidate or one of its ancestors
func decide(rules []compiled, c candidate) (Disposition, int) {
	disp, idx := Exclude, -1
	if c.scope == ScopeRoot {
		disp = Include
	}
	lineage := c.lineage()
	for i, r := range rules {
		if r.scope == c.scope && r.covers(lineage) {
			disp, idx = r.rule.Disposition, i
		}
	}
	return disp, idx
}

// lineage lists the candidate key and every ancestor key, outermost first
func (c candidate) lineage() []string {
	if c.key == "." {
		return []string{"."}
	}
	parts := strings.Split(c.key, "/")
	out := make([]string, 0, len(parts)+1)
	out = append(out, ".")
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "/"))
	}
	return out
}

func (r compiled) covers(lineage []string) bool {
	for _, key := range lineage {
		if key == "." {
			if r.pattern == "." {
				return true
			}
			continue
		}
		if ok, _ := doublestar.Match(r.pattern, key); ok {
			return true
		}
	}
	return false
}

func isAncestor(a, b candidate) bool {
	if a.scope != b.scope || a.key == b.key {
		return false
	}
	return a.key == "." || strings.HasPrefix(b.key, a.key+"/")
}

// nearest returns the closest ancestor candidate of c, or -1
func (p *Plan) nearest(i int) int {
	best, bestLen := -1, -1
	for j, a := range p.candidates {
		if !isAncestor(a, p.candidates[i]) {
			continue
		}
		l := len(a.key)
		if a.key == "." {
			l = 0
		}
		if l > bestLen {
			best, bestLen = j, l
		}
	}
	return best
}

// owner returns the emitted task candidate whose copy contains candidate i, or -1
func (p *Plan) owner(i int) int {
	cur := p.nearest(i)
	if cur < 0 || p.candidates[cur].disposition != Include {
		return -1
	}
	for {
		up := p.nearest(cur)
		if up < 0 || p.candidates[up].disposition != Include {
			return cur
		}
		cur = up
	}
}

func (p *Plan) emitted(i int) bool {
	c := p.candidates[i]
	if c.disposition != Include {
		return false
	}
	a := p.nearest(i)
	return a < 0 || p.candidates[a].disposition != Include
}

// Tasks yields the copy tasks in resolution order. Each call walks the plan afresh.
func (p *Plan) Tasks() iter.Seq[CopyTask] {
	return func(yield func(CopyTask) bool) {
		for i := range p.candidates {
			if !p.emitted(i) {
				continue
			}
			if !yield(p.task(i)) {
				return
			}
		}
	}
}

// TaskList collects Tasks into a slice
func (p *Plan) TaskList() []CopyTask {
	return slices.Collect(p.Tasks())
}

// Decisions reports the disposition of every candidate directory
func (p *Plan) Decisions() []Decision {
	out := make([]Decision, 0, len(p.candidates))
	for _, c := range p.candidates {
		out = append(out, Decision{Scope: c.scope, RelPath: displayRel(c.rel), Disposition: c.disposition, Rule: c.rule})
	}
	return out
}

// Disposition looks up the decision for one candidate path
func (p *Plan) Disposition(scope Scope, rel string) (Disposition, bool) {
	key := strings.ToLower(strings.Trim(strings.ReplaceAll(rel, `\`, "/"), "/"))
	if key == "" {
		key = "."
	}
	for _, c := range p.candidates {
		if c.scope == scope && c.key == key {
			return c.disposition, true
		}
	}
	return "", false
}

// Spec returns the profile the plan was resolved for
func (p *Plan) Spec() ProfileSpec {
	return p.spec
}

func (p *Plan) base(scope Scope) (src, dst string) {
	switch scope {
	case ScopeAppData:
		return p.spec.AppDataSource(), JoinPath(p.spec.Destination, appDataDir)
	case ScopePrograms:
		return p.spec.ProgramsSource, p.spec.ProgramsDestination
	default:
		return p.spec.SourceRoot(), p.spec.Destination
	}
}

func (p *Plan) task(i int) CopyTask {
	c := p.candidates[i]
	srcBase, dstBase := p.base(c.scope)

	t := CopyTask{
		Scope:       c.scope,
		RelPath:     displayRel(c.rel),
		Source:      JoinPath(srcBase, c.rel),
		Destination: JoinPath(dstBase, c.rel),
	}

	switch c.scope {
	case ScopeRoot:
		t.Name = "profile"
		if c.key != "." {
			t.Name = displayRel(c.rel)
		}
	case ScopeAppData:
		t.Name = appDataDir + `\` + displayRel(c.rel)
	case ScopePrograms:
		t.Name = leaf(p.spec.ProgramsSource) + `\` + displayRel(c.rel)
	}

	if c.scope == ScopeRoot && c.key == "." {
		t.ExcludeDirs = append(t.ExcludeDirs, p.spec.AppDataSource())
	}

	matched := map[int]bool{}
	if c.rule >= 0 {
		matched[c.rule] = true
	}
	for j, d := range p.candidates {
		if j == i || !isAncestor(c, d) {
			continue
		}
		if d.rule >= 0 {
			matched[d.rule] = true
		}
		if d.disposition == Exclude && p.owner(j) == i {
			t.ExcludeDirs = append(t.ExcludeDirs, JoinPath(srcBase, d.rel))
		}
	}
	for j, r := range p.rules {
		if matched[j] {
			t.Rules = append(t.Rules, r.rule)
		}
	}

	return t
}

func displayRel(rel string) string {
	if rel == "." {
		return "."
	}
	return strings.ReplaceAll(rel, "/", `\`)
}

func leaf(p string) string {
	parts := strings.FieldsFunc(p, func(r rune) bool { return r == '\\' || r == '/' })
	if len(parts) == 0 {
		return p
	}
	return parts[len(parts)-1]
}
