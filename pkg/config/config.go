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

package config

import (
	"fmt"
	"strings"

	"github.com/walteh/profilesync/pkg/plan"
	"github.com/walteh/profilesync/pkg/registry"
	"gitlab.com/tozd/go/errors"
)

// 👤 ProfileArgs identify the profile to copy
type ProfileArgs struct {
	Machine       string   `json:"machine" yaml:"machine"`
	User          string   `json:"user" yaml:"user"`
	Destination   string   `json:"destination" yaml:"destination"`
	ShareSubpath  string   `json:"share_subpath" yaml:"share_subpath"`
	AppDataScopes []string `json:"appdata_scopes" yaml:"appdata_scopes"`
}

// 📏 RuleArgs is one include/exclude entry
type RuleArgs struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Action  string `json:"action" yaml:"action"`                     // include or exclude
	Scope   string `json:"scope,omitempty" yaml:"scope,omitempty"` // root, appdata or programs; empty infers
}

// 🔧 CopyArgs are the robocopy switches shared by every task
type CopyArgs struct {
	Mirror             bool     `json:"mirror" yaml:"mirror"`
	Retries            int      `json:"retries" yaml:"retries"`
	WaitSeconds        int      `json:"wait_seconds" yaml:"wait_seconds"`
	Threads            int      `json:"threads" yaml:"threads"`
	PreserveTimestamps bool     `json:"preserve_timestamps" yaml:"preserve_timestamps"`
	Restartable        bool     `json:"restartable" yaml:"restartable"`
	ExcludeFiles       []string `json:"exclude_files" yaml:"exclude_files"`
	ExcludeDirs        []string `json:"exclude_dirs" yaml:"exclude_dirs"`
	TempPatterns       []string `json:"temp_patterns" yaml:"temp_patterns"`
	Extra              []string `json:"extra,omitempty" yaml:"extra,omitempty"`
	RetryPartial       bool     `json:"retry_partial" yaml:"retry_partial"`
}

// 💾 ProgramsArgs configure the Program Files (x86) copy
type ProgramsArgs struct {
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	Source      string   `json:"source" yaml:"source"` // share path on the source machine
	Destination string   `json:"destination" yaml:"destination"`
	Include     []string `json:"include" yaml:"include"`
}

// 🗝️ RegistryArgs configure the registry export
type RegistryArgs struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	Keys             []string `json:"keys" yaml:"keys"`
	Elevation        string   `json:"elevation" yaml:"elevation"`
	OutputDir        string   `json:"output_dir" yaml:"output_dir"` // relative paths sit under the destination
	Helper           string   `json:"helper,omitempty" yaml:"helper,omitempty"`
	SearchDirs       []string `json:"search_dirs,omitempty" yaml:"search_dirs,omitempty"`
	Session          int      `json:"session" yaml:"session"`
	FallbackToDirect bool     `json:"fallback_to_direct" yaml:"fallback_to_direct"`
	AcceptEULA       bool     `json:"accept_eula" yaml:"accept_eula"`
}

// 🔐 AuthArgs configure share authentication
type AuthArgs struct {
	MaxAttempts int    `json:"max_attempts" yaml:"max_attempts"`
	Preflight   bool   `json:"preflight" yaml:"preflight"`
	Domain      string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	PasswordEnv string `json:"password_env,omitempty" yaml:"password_env,omitempty"`
}

// 🔗 ShortcutsArgs configure Mark of the Web removal
type ShortcutsArgs struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Dir        string   `json:"dir" yaml:"dir"` // relative to the destination
	Extensions []string `json:"extensions" yaml:"extensions"`
}

// 📓 JournalArgs configure the run journal
type JournalArgs struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// 📝 LogsArgs configure the per-run log file
type LogsArgs struct {
	Dir string `json:"dir" yaml:"dir"` // empty disables the log file
}

// 📚 Config represents the complete configuration
type Config struct {
	Profile   ProfileArgs   `json:"profile" yaml:"profile"`
	Rules     []RuleArgs    `json:"rules" yaml:"rules"`
	Copy      CopyArgs      `json:"copy" yaml:"copy"`
	Programs  ProgramsArgs  `json:"programs" yaml:"programs"`
	Registry  RegistryArgs  `json:"registry" yaml:"registry"`
	Auth      AuthArgs      `json:"auth" yaml:"auth"`
	Shortcuts ShortcutsArgs `json:"shortcuts" yaml:"shortcuts"`
	Journal   JournalArgs   `json:"journal" yaml:"journal"`
	Logs      LogsArgs      `json:"logs" yaml:"logs"`
	DryRun    bool          `json:"dry_run" yaml:"dry_run"`
}

// 🏭 Default returns the configuration used when a file leaves a field out
func Default() *Config {
	return &Config{
		Profile: ProfileArgs{
			ShareSubpath:  plan.DefaultShareSubpath,
			AppDataScopes: append([]string(nil), plan.DefaultAppDataScopes...),
		},
		Rules: []RuleArgs{
			{Pattern: `AppData\Local\Google\Chrome\User Data\Default`, Action: "include"},
			{Pattern: `AppData\Local\Mozilla`, Action: "include"},
			{Pattern: `AppData\Roaming\Mozilla`, Action: "include"},
			{Pattern: `AppData\Roaming\Microsoft\Windows\Recent`, Action: "include"},
		},
		Copy: CopyArgs{
			Retries:            3,
			WaitSeconds:        5,
			Threads:            8,
			PreserveTimestamps: true,
			Restartable:        true,
			ExcludeFiles: []string{
				"NTUSER.DAT",
				"ntuser.dat.LOG1",
				"ntuser.dat.LOG2",
				"UsrClass.dat",
				"UsrClass.dat.LOG1",
				"UsrClass.dat.LOG2",
			},
			ExcludeDirs:  []string{`Default\Cache`, `Default\Code Cache`},
			TempPatterns: []string{"*.tmp", "~$*"},
		},
		Programs: ProgramsArgs{
			Source:      `C$\Program Files (x86)`,
			Destination: `C:\Program Files (x86)`,
		},
		Registry: RegistryArgs{
			Enabled:    true,
			Keys:       []string{`HKCU\Network`, `HKCU\Printers\Connections`},
			Elevation:  string(registry.ElevationDirect),
			OutputDir:  "registry",
			AcceptEULA: true,
		},
		Auth: AuthArgs{
			MaxAttempts: 3,
			Preflight:   true,
		},
		Shortcuts: ShortcutsArgs{
			Enabled:    true,
			Dir:        "Desktop",
			Extensions: []string{".url", ".lnk"},
		},
		Journal: JournalArgs{
			Enabled: true,
			Path:    "profilesync.db",
		},
		Logs: LogsArgs{
			Dir: "logs",
		},
	}
}

// 🔍 Validate checks the parts of the configuration that do not depend on the
// profile being fully specified. Machine, user and destination may still be
// supplied by flags or prompts after loading.
func (cfg *Config) Validate() error {
	for i, r := range cfg.Rules {
		if strings.TrimSpace(r.Pattern) == "" {
			return errors.Errorf("rules[%d].pattern is required", i)
		}
		switch plan.Disposition(strings.ToLower(r.Action)) {
		case plan.Include, plan.Exclude:
		default:
			return errors.Errorf("rules[%d].action must be include or exclude, got %q", i, r.Action)
		}
		switch plan.Scope(strings.ToLower(r.Scope)) {
		case "", plan.ScopeRoot, plan.ScopeAppData, plan.ScopePrograms:
		default:
			return errors.Errorf("rules[%d].scope must be root, appdata or programs, got %q", i, r.Scope)
		}
	}

	if cfg.Copy.Retries < 0 {
		return errors.Errorf("copy.retries must not be negative")
	}
	if cfg.Copy.WaitSeconds < 0 {
		return errors.Errorf("copy.wait_seconds must not be negative")
	}
	if cfg.Copy.Threads < 0 || cfg.Copy.Threads > 128 {
		return errors.Errorf("copy.threads must be between 0 and 128")
	}

	if cfg.Programs.Enabled && len(cfg.Programs.Include) > 0 {
		if cfg.Programs.Source == "" {
			return errors.Errorf("programs.source is required when programs are enabled")
		}
		if cfg.Programs.Destination == "" {
			return errors.Errorf("programs.destination is required when programs are enabled")
		}
	}

	if cfg.Registry.Enabled {
		if _, err := registry.ParseElevation(cfg.Registry.Elevation); err != nil {
			return errors.Errorf("registry.elevation: %w", err)
		}
		if cfg.Registry.Session < 0 {
			return errors.Errorf("registry.session must not be negative")
		}
	}

	if cfg.Auth.MaxAttempts < 1 {
		return errors.Errorf("auth.max_attempts must be at least 1")
	}

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		return errors.Errorf("journal.path is required when the journal is enabled")
	}

	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	s := fmt.Sprintf("%s@%s -> %s", orUnset(cfg.Profile.User), orUnset(cfg.Profile.Machine), orUnset(cfg.Profile.Destination))
	if cfg.DryRun {
		s += " (dry run)"
	}
	return s
}

func orUnset(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
