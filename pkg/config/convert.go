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
	"strings"
	"time"

	"github.com/walteh/profilesync/pkg/auth"
	"github.com/walteh/profilesync/pkg/motw"
	"github.com/walteh/profilesync/pkg/plan"
	"github.com/walteh/profilesync/pkg/registry"
	"github.com/walteh/profilesync/pkg/robocopy"
)

func (cfg *Config) programsEnabled() bool {
	return cfg.Programs.Enabled && len(cfg.Programs.Include) > 0
}

// ProfileSpec builds the resolver input
func (cfg *Config) ProfileSpec() plan.ProfileSpec {
	spec := plan.ProfileSpec{
		Machine:       cfg.Profile.Machine,
		User:          cfg.Profile.User,
		Destination:   cfg.Profile.Destination,
		ShareSubpath:  cfg.Profile.ShareSubpath,
		AppDataScopes: cfg.Profile.AppDataScopes,
	}
	if cfg.programsEnabled() {
		spec.ProgramsSource = plan.JoinPath(`\\`+strings.TrimLeft(cfg.Profile.Machine, `\/`), cfg.Programs.Source)
		spec.ProgramsDestination = cfg.Programs.Destination
	}
	return spec
}

// SyncRules returns the configured rules in order, followed by one include
// rule per Program Files folder when that copy is enabled
func (cfg *Config) SyncRules() []plan.SyncRule {
	rules := make([]plan.SyncRule, 0, len(cfg.Rules)+len(cfg.Programs.Include))
	for _, r := range cfg.Rules {
		rules = append(rules, plan.SyncRule{
			Pattern:     r.Pattern,
			Disposition: plan.Disposition(strings.ToLower(r.Action)),
			Scope:       plan.Scope(strings.ToLower(r.Scope)),
		})
	}
	if cfg.programsEnabled() {
		for _, dir := range cfg.Programs.Include {
			rules = append(rules, plan.SyncRule{Pattern: dir, Disposition: plan.Include, Scope: plan.ScopePrograms})
		}
	}
	return rules
}

// RobocopyOptions maps the copy section onto robocopy switches
func (cfg *Config) RobocopyOptions() robocopy.Options {
	return robocopy.Options{
		Mirror:             cfg.Copy.Mirror,
		Retries:            cfg.Copy.Retries,
		Wait:               time.Duration(cfg.Copy.WaitSeconds) * time.Second,
		PreserveTimestamps: cfg.Copy.PreserveTimestamps,
		Restartable:        cfg.Copy.Restartable,
		Threads:            cfg.Copy.Threads,
		Quiet:              true,
		ExcludeFiles:       cfg.Copy.ExcludeFiles,
		ExcludeDirs:        cfg.Copy.ExcludeDirs,
		TempPatterns:       cfg.Copy.TempPatterns,
		Extra:              cfg.Copy.Extra,
	}
}

// RegistryDir is where .reg files are written
func (cfg *Config) RegistryDir() string {
	if plan.IsAbsolute(cfg.Registry.OutputDir) {
		return cfg.Registry.OutputDir
	}
	return plan.JoinPath(cfg.Profile.Destination, cfg.Registry.OutputDir)
}

// RegistryJobs returns one export job per configured key; none when disabled
func (cfg *Config) RegistryJobs() []registry.Job {
	if !cfg.Registry.Enabled {
		return nil
	}
	elevation, err := registry.ParseElevation(cfg.Registry.Elevation)
	if err != nil {
		elevation = registry.ElevationDirect
	}
	return registry.JobsFor(cfg.Registry.Keys, cfg.RegistryDir(), elevation)
}

// RegistryOptions configures the export coordinator
func (cfg *Config) RegistryOptions() registry.Options {
	return registry.Options{
		DryRun: cfg.DryRun,
		Helper: registry.Locator{
			Override:   cfg.Registry.Helper,
			SearchDirs: cfg.Registry.SearchDirs,
		},
		Session:          cfg.Registry.Session,
		FallbackToDirect: cfg.Registry.FallbackToDirect,
		AcceptEULA:       cfg.Registry.AcceptEULA,
	}
}

// ShortcutsDir is the destination folder scanned for Mark of the Web
func (cfg *Config) ShortcutsDir() string {
	return plan.JoinPath(cfg.Profile.Destination, cfg.Shortcuts.Dir)
}

// MotwOptions configures the post-copy shortcut scan
func (cfg *Config) MotwOptions() motw.Options {
	return motw.Options{Extensions: cfg.Shortcuts.Extensions, DryRun: cfg.DryRun}
}

// StaticCredentials returns configured credentials, reading the password from
// the environment variable named by auth.password_env
func (cfg *Config) StaticCredentials(getenv func(string) string) auth.Credentials {
	creds := auth.Credentials{Domain: cfg.Auth.Domain, Username: cfg.Auth.Username}
	if creds.Domain == "" && creds.Username != "" {
		creds.Domain, creds.Username = auth.ParseAccount(creds.Username)
	}
	if cfg.Auth.PasswordEnv != "" && getenv != nil {
		creds.Password = getenv(cfg.Auth.PasswordEnv)
	}
	return creds
}
