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

package plan_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/profilesync/pkg/plan"
)

func jsmith() plan.ProfileSpec {
	return plan.ProfileSpec{
		Machine:     "WS-07",
		User:        "jsmith",
		Destination: `D:\Backups\jsmith`,
	}
}

func names(tasks []plan.CopyTask) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Name)
	}
	return out
}

func TestResolveWorkstationScenario(t *testing.T) {
	p, err := plan.Resolve(jsmith(), []plan.SyncRule{
		plan.IncludeRule(`AppData\Roaming`),
		plan.ExcludeRule(`AppData\Local\Temp`),
	})
	require.NoError(t, err, "resolve should succeed")

	tasks := p.TaskList()
	require.Len(t, tasks, 2, "profile root and Roaming expected")

	root := tasks[0]
	assert.Equal(t, "profile", root.Name)
	assert.Equal(t, plan.ScopeRoot, root.Scope)
	assert.Equal(t, `\\WS-07\C$\Users\jsmith`, root.Source)
	assert.Equal(t, `D:\Backups\jsmith`, root.Destination)
	assert.Equal(t, []string{`\\WS-07\C$\Users\jsmith\AppData`}, root.ExcludeDirs, "root copy never descends into AppData")

	roaming := tasks[1]
	assert.Equal(t, `AppData\Roaming`, roaming.Name)
	assert.Equal(t, plan.ScopeAppData, roaming.Scope)
	assert.Equal(t, `\\WS-07\C$\Users\jsmith\AppData\Roaming`, roaming.Source)
	assert.Equal(t, `D:\Backups\jsmith\AppData\Roaming`, roaming.Destination)
	assert.Empty(t, roaming.ExcludeDirs)
	assert.Equal(t, []plan.SyncRule{plan.IncludeRule(`AppData\Roaming`)}, roaming.Rules)

	for _, task := range tasks {
		assert.NotContains(t, task.Source, "Temp", "Temp must not be planned")
	}

	disp, ok := p.Disposition(plan.ScopeAppData, `Local\Temp`)
	require.True(t, ok)
	assert.Equal(t, plan.Exclude, disp)
}

func TestResolveTasks(t *testing.T) {
	tests := []struct {
		name      string
		spec      func() plan.ProfileSpec
		rules     []plan.SyncRule
		wantNames []string
		check     func(t *testing.T, tasks []plan.CopyTask)
	}{
		{
			name:      "no_rules_copies_root_only",
			spec:      jsmith,
			wantNames: []string{"profile"},
		},
		{
			name:      "root_exclusion_becomes_exclude_dir",
			spec:      jsmith,
			rules:     []plan.SyncRule{plan.ExcludeRule("Downloads")},
			wantNames: []string{"profile"},
			check: func(t *testing.T, tasks []plan.CopyTask) {
				assert.Equal(t, []string{
					`\\WS-07\C$\Users\jsmith\AppData`,
					`\\WS-07\C$\Users\jsmith\Downloads`,
				}, tasks[0].ExcludeDirs)
			},
		},
		{
			name: "nested_exclusion_inside_appdata",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.IncludeRule(`AppData\Local\Google`),
				plan.ExcludeRule(`AppData\Local\Google\Chrome\Cache`),
			},
			wantNames: []string{"profile", `AppData\Local\Google`},
			check: func(t *testing.T, tasks []plan.CopyTask) {
				assert.Equal(t, []string{`\\WS-07\C$\Users\jsmith\AppData\Local\Google\Chrome\Cache`}, tasks[1].ExcludeDirs)
				assert.Len(t, tasks[1].Rules, 2, "both rules touch the Google subtree")
			},
		},
		{
			name: "included_child_is_covered_by_parent",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.IncludeRule(`AppData\Roaming`),
				plan.IncludeRule(`AppData\Roaming\Microsoft\Windows\Recent`),
			},
			wantNames: []string{"profile", `AppData\Roaming`},
		},
		{
			name: "later_exclude_overrides_include",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.IncludeRule(`AppData\Roaming`),
				plan.ExcludeRule(`AppData\Roaming`),
			},
			wantNames: []string{"profile"},
		},
		{
			name: "later_include_overrides_exclude",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.ExcludeRule(`AppData\Roaming`),
				plan.IncludeRule(`AppData\Roaming`),
			},
			wantNames: []string{"profile", `AppData\Roaming`},
		},
		{
			name: "glob_rule_applies_to_literal_candidates",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.IncludeRule(`AppData\Local\Mozilla`),
				plan.ExcludeRule(`AppData/Local/*`),
			},
			wantNames: []string{"profile"},
		},
		{
			name: "later_parent_exclude_overrides_child_include",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.IncludeRule(`AppData\Local\Mozilla`),
				plan.ExcludeRule(`AppData\Local`),
			},
			wantNames: []string{"profile"},
		},
		{
			name: "later_parent_include_overrides_child_exclude",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.ExcludeRule(`Documents\Private`),
				plan.IncludeRule("Documents"),
			},
			wantNames: []string{"profile"},
			check: func(t *testing.T, tasks []plan.CopyTask) {
				assert.Equal(t, []string{`\\WS-07\C$\Users\jsmith\AppData`}, tasks[0].ExcludeDirs, "Private is copied with Documents")
			},
		},
		{
			name: "later_child_exclude_inside_parent_include",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.IncludeRule("Documents"),
				plan.ExcludeRule(`Documents\Private`),
			},
			wantNames: []string{"profile"},
			check: func(t *testing.T, tasks []plan.CopyTask) {
				assert.Equal(t, []string{
					`\\WS-07\C$\Users\jsmith\AppData`,
					`\\WS-07\C$\Users\jsmith\Documents\Private`,
				}, tasks[0].ExcludeDirs)
			},
		},
		{
			name: "case_insensitive_match",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.IncludeRule(`appdata\roaming`),
			},
			wantNames: []string{"profile", `AppData\Roaming`},
		},
		{
			name: "root_excluded_by_dot_rule",
			spec: jsmith,
			rules: []plan.SyncRule{
				plan.ExcludeRule("."),
				plan.IncludeRule("Documents"),
			},
			wantNames: []string{"Documents"},
			check: func(t *testing.T, tasks []plan.CopyTask) {
				assert.Equal(t, `\\WS-07\C$\Users\jsmith\Documents`, tasks[0].Source)
				assert.Equal(t, `D:\Backups\jsmith\Documents`, tasks[0].Destination)
				assert.Empty(t, tasks[0].ExcludeDirs)
			},
		},
		{
			name: "programs_scope",
			spec: func() plan.ProfileSpec {
				s := jsmith()
				s.ProgramsSource = `\\WS-07\C$\Program Files (x86)`
				s.ProgramsDestination = `C:\Program Files (x86)`
				return s
			},
			rules: []plan.SyncRule{
				{Pattern: "Vendor App", Disposition: plan.Include, Scope: plan.ScopePrograms},
			},
			wantNames: []string{"profile", `Program Files (x86)\Vendor App`},
			check: func(t *testing.T, tasks []plan.CopyTask) {
				assert.Equal(t, `\\WS-07\C$\Program Files (x86)\Vendor App`, tasks[1].Source)
				assert.Equal(t, `C:\Program Files (x86)\Vendor App`, tasks[1].Destination)
			},
		},
		{
			name: "local_source_override",
			spec: func() plan.ProfileSpec {
				return plan.ProfileSpec{SourcePath: "/mnt/old/jsmith", Destination: "/srv/backups/jsmith"}
			},
			rules:     []plan.SyncRule{plan.IncludeRule("AppData/Roaming")},
			wantNames: []string{"profile", `AppData\Roaming`},
			check: func(t *testing.T, tasks []plan.CopyTask) {
				assert.Equal(t, "/mnt/old/jsmith/AppData/Roaming", tasks[1].Source)
				assert.Equal(t, "/srv/backups/jsmith/AppData/Roaming", tasks[1].Destination)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := plan.Resolve(tt.spec(), tt.rules)
			require.NoError(t, err, "resolve should succeed")

			tasks := p.TaskList()
			assert.Equal(t, tt.wantNames, names(tasks), "task names should match")
			if tt.check != nil && len(tasks) == len(tt.wantNames) {
				tt.check(t, tasks)
			}
		})
	}
}

func TestResolveGlobExpansion(t *testing.T) {
	fsys := fstest.MapFS{
		"AppData/Local/Mozilla/profiles.ini":   {},
		"AppData/Local/Packages/x/state.dat":   {},
		"AppData/Local/Temp/scratch.tmp":       {},
		"AppData/Local/notes.txt":              {},
		"AppData/Roaming/Zoom/data.bin":        {},
		"Documents/report.docx":                {},
		"Music/song.mp3":                       {},
	}

	p, err := plan.Resolve(jsmith(), []plan.SyncRule{
		plan.IncludeRule(`AppData\Local\*`),
		plan.ExcludeRule(`AppData\Local\Temp`),
		plan.ExcludeRule(`M*`),
	}, plan.WithSourceFS(fsys))
	require.NoError(t, err, "resolve should succeed")

	tasks := p.TaskList()
	assert.Equal(t, []string{"profile", `AppData\Local\Mozilla`, `AppData\Local\Packages`}, names(tasks))
	assert.Equal(t, []string{
		`\\WS-07\C$\Users\jsmith\AppData`,
		`\\WS-07\C$\Users\jsmith\Music`,
	}, tasks[0].ExcludeDirs, "globbed root exclusions are applied")

	_, ok := p.Disposition(plan.ScopeAppData, `Local\notes.txt`)
	assert.False(t, ok, "files are never candidates")
}

func TestTasksRestartable(t *testing.T) {
	p, err := plan.Resolve(jsmith(), []plan.SyncRule{
		plan.IncludeRule(`AppData\Roaming`),
		plan.IncludeRule(`AppData\LocalLow`),
	})
	require.NoError(t, err)

	first := p.TaskList()
	second := p.TaskList()
	assert.Equal(t, first, second, "repeated walks must yield identical tasks")

	count := 0
	for range p.Tasks() {
		count++
		break
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, first, p.TaskList(), "an abandoned walk leaves the plan untouched")
}

func TestResolveConfigurationErrors(t *testing.T) {
	withPrograms := func() plan.ProfileSpec {
		s := jsmith()
		s.ProgramsSource = `\\WS-07\C$\Program Files (x86)`
		s.ProgramsDestination = `C:\Program Files (x86)`
		return s
	}

	tests := []struct {
		name        string
		spec        func() plan.ProfileSpec
		rules       []plan.SyncRule
		wantIndex   int
		errContains string
	}{
		{
			name:        "unknown_scope",
			spec:        jsmith,
			rules:       []plan.SyncRule{{Pattern: "Documents", Disposition: plan.Include, Scope: "system"}},
			wantIndex:   0,
			errContains: "unknown scope",
		},
		{
			name:        "unconfigured_appdata_scope",
			spec:        jsmith,
			rules:       []plan.SyncRule{plan.IncludeRule(`AppData\Roaming`), plan.IncludeRule(`AppData\Packages\Foo`)},
			wantIndex:   1,
			errContains: `AppData scope "Packages" is not configured`,
		},
		{
			name: "appdata_scope_removed_from_profile",
			spec: func() plan.ProfileSpec {
				s := jsmith()
				s.AppDataScopes = []string{"Roaming"}
				return s
			},
			rules:       []plan.SyncRule{plan.IncludeRule(`AppData\Local\Google`)},
			wantIndex:   0,
			errContains: "not configured",
		},
		{
			name:        "programs_without_source",
			spec:        jsmith,
			rules:       []plan.SyncRule{{Pattern: "Vendor", Disposition: plan.Include, Scope: plan.ScopePrograms}},
			wantIndex:   0,
			errContains: "no Program Files source",
		},
		{
			name:        "empty_pattern",
			spec:        withPrograms,
			rules:       []plan.SyncRule{plan.IncludeRule("  ")},
			wantIndex:   0,
			errContains: "pattern is empty",
		},
		{
			name:        "invalid_glob",
			spec:        jsmith,
			rules:       []plan.SyncRule{plan.ExcludeRule("Documents[")},
			wantIndex:   0,
			errContains: "invalid glob",
		},
		{
			name:        "root_rule_into_appdata",
			spec:        jsmith,
			rules:       []plan.SyncRule{{Pattern: `AppData\Roaming`, Disposition: plan.Include, Scope: plan.ScopeRoot}},
			wantIndex:   0,
			errContains: "appdata rules",
		},
		{
			name:        "appdata_itself",
			spec:        jsmith,
			rules:       []plan.SyncRule{plan.IncludeRule(`AppData`)},
			wantIndex:   0,
			errContains: "inside AppData",
		},
		{
			name:        "unknown_disposition",
			spec:        jsmith,
			rules:       []plan.SyncRule{{Pattern: "Documents", Disposition: "maybe"}},
			wantIndex:   0,
			errContains: "unknown disposition",
		},
		{
			name:        "parent_traversal",
			spec:        jsmith,
			rules:       []plan.SyncRule{plan.IncludeRule(`..\other`)},
			wantIndex:   0,
			errContains: "leave its scope",
		},
		{
			name: "missing_destination",
			spec: func() plan.ProfileSpec {
				s := jsmith()
				s.Destination = ""
				return s
			},
			wantIndex:   -1,
			errContains: "destination is required",
		},
		{
			name: "relative_destination",
			spec: func() plan.ProfileSpec {
				s := jsmith()
				s.Destination = `Backups\jsmith`
				return s
			},
			wantIndex:   -1,
			errContains: "absolute",
		},
		{
			name: "destination_equals_source",
			spec: func() plan.ProfileSpec {
				s := jsmith()
				s.Destination = `\\ws-07\c$\users\JSMITH\`
				return s
			},
			wantIndex:   -1,
			errContains: "differ from the source",
		},
		{
			name: "missing_machine",
			spec: func() plan.ProfileSpec {
				s := jsmith()
				s.Machine = ""
				return s
			},
			wantIndex:   -1,
			errContains: "machine is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := plan.Resolve(tt.spec(), tt.rules)
			require.Error(t, err, "resolve should fail")
			assert.Nil(t, p)

			var cfgErr *plan.ConfigurationError
			require.ErrorAs(t, err, &cfgErr, "error should be a ConfigurationError")
			assert.Equal(t, tt.wantIndex, cfgErr.Index)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestDecisions(t *testing.T) {
	p, err := plan.Resolve(jsmith(), []plan.SyncRule{
		plan.IncludeRule(`AppData\Roaming`),
		plan.ExcludeRule(`AppData\Local\Temp`),
	})
	require.NoError(t, err)

	got := map[string]plan.Decision{}
	for _, d := range p.Decisions() {
		got[string(d.Scope)+":"+d.RelPath] = d
	}

	assert.Equal(t, plan.Include, got["root:."].Disposition)
	assert.Equal(t, -1, got["root:."].Rule, "root is included by default")
	assert.Equal(t, plan.Exclude, got["appdata:Local"].Disposition)
	assert.Equal(t, -1, got["appdata:Local"].Rule, "AppData is excluded by default")
	assert.Equal(t, 0, got["appdata:Roaming"].Rule)
	assert.Equal(t, 1, got[`appdata:Local\Temp`].Rule)
	assert.True(t, strings.HasPrefix(got[`appdata:Local\Temp`].String(), "exclude"))
}

func TestDecisionsFollowLaterParentRule(t *testing.T) {
	p, err := plan.Resolve(jsmith(), []plan.SyncRule{
		plan.IncludeRule(`AppData\Local\Mozilla`),
		plan.ExcludeRule(`AppData\Local`),
		plan.ExcludeRule(`Documents\Private`),
		plan.IncludeRule("Documents"),
	})
	require.NoError(t, err)

	got := map[string]plan.Decision{}
	for _, d := range p.Decisions() {
		got[string(d.Scope)+":"+d.RelPath] = d
	}

	assert.Equal(t, plan.Exclude, got[`appdata:Local\Mozilla`].Disposition)
	assert.Equal(t, 1, got[`appdata:Local\Mozilla`].Rule, "the later AppData\\Local rule decides")
	assert.Equal(t, plan.Include, got[`root:Documents\Private`].Disposition)
	assert.Equal(t, 3, got[`root:Documents\Private`].Rule, "the later Documents rule decides")
}
