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
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files.
// Expressions may read the environment through env.NAME.
type HCLParser struct {
	Environ func() []string // defaults to os.Environ
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return hasExt(filename, ".hcl")
}

// hclConfig is the HCL schema. Pointers mark what the file actually set.
type hclConfig struct {
	DryRun *bool `hcl:"dry_run,optional"`

	Profile *struct {
		Machine       *string   `hcl:"machine,optional"`
		User          *string   `hcl:"user,optional"`
		Destination   *string   `hcl:"destination,optional"`
		ShareSubpath  *string   `hcl:"share_subpath,optional"`
		AppDataScopes *[]string `hcl:"appdata_scopes,optional"`
	} `hcl:"profile,block"`

	Rules []struct {
		Action  string  `hcl:"action,label"`
		Pattern string  `hcl:"pattern"`
		Scope   *string `hcl:"scope,optional"`
	} `hcl:"rule,block"`

	Copy *struct {
		Mirror             *bool     `hcl:"mirror,optional"`
		Retries            *int      `hcl:"retries,optional"`
		WaitSeconds        *int      `hcl:"wait_seconds,optional"`
		Threads            *int      `hcl:"threads,optional"`
		PreserveTimestamps *bool     `hcl:"preserve_timestamps,optional"`
		Restartable        *bool     `hcl:"restartable,optional"`
		ExcludeFiles       *[]string `hcl:"exclude_files,optional"`
		ExcludeDirs        *[]string `hcl:"exclude_dirs,optional"`
		TempPatterns       *[]string `hcl:"temp_patterns,optional"`
		Extra              *[]string `hcl:"extra,optional"`
		RetryPartial       *bool     `hcl:"retry_partial,optional"`
	} `hcl:"copy,block"`

	Programs *struct {
		Enabled     *bool     `hcl:"enabled,optional"`
		Source      *string   `hcl:"source,optional"`
		Destination *string   `hcl:"destination,optional"`
		Include     *[]string `hcl:"include,optional"`
	} `hcl:"programs,block"`

	Registry *struct {
		Enabled          *bool     `hcl:"enabled,optional"`
		Keys             *[]string `hcl:"keys,optional"`
		Elevation        *string   `hcl:"elevation,optional"`
		OutputDir        *string   `hcl:"output_dir,optional"`
		Helper           *string   `hcl:"helper,optional"`
		SearchDirs       *[]string `hcl:"search_dirs,optional"`
		Session          *int      `hcl:"session,optional"`
		FallbackToDirect *bool     `hcl:"fallback_to_direct,optional"`
		AcceptEULA       *bool     `hcl:"accept_eula,optional"`
	} `hcl:"registry,block"`

	Auth *struct {
		MaxAttempts *int    `hcl:"max_attempts,optional"`
		Preflight   *bool   `hcl:"preflight,optional"`
		Domain      *string `hcl:"domain,optional"`
		Username    *string `hcl:"username,optional"`
		PasswordEnv *string `hcl:"password_env,optional"`
	} `hcl:"auth,block"`

	Shortcuts *struct {
		Enabled    *bool     `hcl:"enabled,optional"`
		Dir        *string   `hcl:"dir,optional"`
		Extensions *[]string `hcl:"extensions,optional"`
	} `hcl:"shortcuts,block"`

	Journal *struct {
		Enabled *bool   `hcl:"enabled,optional"`
		Path    *string `hcl:"path,optional"`
	} `hcl:"journal,block"`

	Logs *struct {
		Dir *string `hcl:"dir,optional"`
	} `hcl:"logs,block"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (p *HCLParser) evalContext() *hcl.EvalContext {
	environ := p.Environ
	if environ == nil {
		environ = os.Environ
	}
	env := map[string]cty.Value{}
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "profilesync.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	var in hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, p.evalContext(), &in)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := Default()
	set(&cfg.DryRun, in.DryRun)

	if b := in.Profile; b != nil {
		set(&cfg.Profile.Machine, b.Machine)
		set(&cfg.Profile.User, b.User)
		set(&cfg.Profile.Destination, b.Destination)
		set(&cfg.Profile.ShareSubpath, b.ShareSubpath)
		set(&cfg.Profile.AppDataScopes, b.AppDataScopes)
	}

	// no rule blocks keeps the default rules
	if len(in.Rules) > 0 {
		cfg.Rules = make([]RuleArgs, 0, len(in.Rules))
		for _, r := range in.Rules {
			rule := RuleArgs{Action: r.Action, Pattern: r.Pattern}
			set(&rule.Scope, r.Scope)
			cfg.Rules = append(cfg.Rules, rule)
		}
	}

	if b := in.Copy; b != nil {
		set(&cfg.Copy.Mirror, b.Mirror)
		set(&cfg.Copy.Retries, b.Retries)
		set(&cfg.Copy.WaitSeconds, b.WaitSeconds)
		set(&cfg.Copy.Threads, b.Threads)
		set(&cfg.Copy.PreserveTimestamps, b.PreserveTimestamps)
		set(&cfg.Copy.Restartable, b.Restartable)
		set(&cfg.Copy.ExcludeFiles, b.ExcludeFiles)
		set(&cfg.Copy.ExcludeDirs, b.ExcludeDirs)
		set(&cfg.Copy.TempPatterns, b.TempPatterns)
		set(&cfg.Copy.Extra, b.Extra)
		set(&cfg.Copy.RetryPartial, b.RetryPartial)
	}

	if b := in.Programs; b != nil {
		set(&cfg.Programs.Enabled, b.Enabled)
		set(&cfg.Programs.Source, b.Source)
		set(&cfg.Programs.Destination, b.Destination)
		set(&cfg.Programs.Include, b.Include)
	}

	if b := in.Registry; b != nil {
		set(&cfg.Registry.Enabled, b.Enabled)
		set(&cfg.Registry.Keys, b.Keys)
		set(&cfg.Registry.Elevation, b.Elevation)
		set(&cfg.Registry.OutputDir, b.OutputDir)
		set(&cfg.Registry.Helper, b.Helper)
		set(&cfg.Registry.SearchDirs, b.SearchDirs)
		set(&cfg.Registry.Session, b.Session)
		set(&cfg.Registry.FallbackToDirect, b.FallbackToDirect)
		set(&cfg.Registry.AcceptEULA, b.AcceptEULA)
	}

	if b := in.Auth; b != nil {
		set(&cfg.Auth.MaxAttempts, b.MaxAttempts)
		set(&cfg.Auth.Preflight, b.Preflight)
		set(&cfg.Auth.Domain, b.Domain)
		set(&cfg.Auth.Username, b.Username)
		set(&cfg.Auth.PasswordEnv, b.PasswordEnv)
	}

	if b := in.Shortcuts; b != nil {
		set(&cfg.Shortcuts.Enabled, b.Enabled)
		set(&cfg.Shortcuts.Dir, b.Dir)
		set(&cfg.Shortcuts.Extensions, b.Extensions)
	}

	if b := in.Journal; b != nil {
		set(&cfg.Journal.Enabled, b.Enabled)
		set(&cfg.Journal.Path, b.Path)
	}

	if b := in.Logs; b != nil {
		set(&cfg.Logs.Dir, b.Dir)
	}

	return cfg, nil
}
