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
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/profilesync/pkg/auth"
	"github.com/walteh/profilesync/pkg/plan"
	"github.com/walteh/profilesync/pkg/registry"
	"gitlab.com/tozd/go/errors"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid_config",
			config: `
profile:
  machine: WS-07
  user: jsmith
  destination: 'D:\Backups\jsmith'
rules:
  - pattern: 'AppData\Roaming'
    action: include
  - pattern: 'AppData\Local\Temp'
    action: exclude
copy:
  mirror: true
  retries: 5
  wait_seconds: 10
registry:
  keys:
    - 'HKCU\Network'
  elevation: helper
dry_run: true
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "WS-07", cfg.Profile.Machine, "machine should match")
				assert.Equal(t, "jsmith", cfg.Profile.User, "user should match")
				assert.Equal(t, `D:\Backups\jsmith`, cfg.Profile.Destination, "destination should match")
				assert.Equal(t, plan.DefaultShareSubpath, cfg.Profile.ShareSubpath, "share subpath keeps its default")
				require.Len(t, cfg.Rules, 2, "rules replace the defaults")
				assert.Equal(t, RuleArgs{Pattern: `AppData\Local\Temp`, Action: "exclude"}, cfg.Rules[1])
				assert.True(t, cfg.Copy.Mirror, "mirror should be set")
				assert.Equal(t, 5, cfg.Copy.Retries, "retries should match")
				assert.Equal(t, 8, cfg.Copy.Threads, "threads keeps its default")
				assert.Equal(t, Default().Copy.ExcludeFiles, cfg.Copy.ExcludeFiles, "hive files stay excluded")
				assert.Equal(t, []string{`HKCU\Network`}, cfg.Registry.Keys)
				assert.Equal(t, "helper", cfg.Registry.Elevation)
				assert.True(t, cfg.Registry.Enabled, "registry keeps its default")
				assert.True(t, cfg.DryRun, "dry run should be set")
			},
		},
		{
			name:   "empty_file_is_default",
			config: "",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "unknown_field",
			config: `
profile:
  machine: WS-07
  hostname: nope
`,
			wantErr:     true,
			errContains: "hostname",
		},
		{
			name: "bad_action",
			config: `
rules:
  - pattern: Documents
    action: copy
`,
			wantErr:     true,
			errContains: "rules[0].action must be include or exclude",
		},
		{
			name: "bad_scope",
			config: `
rules:
  - pattern: Documents
    action: include
    scope: system
`,
			wantErr:     true,
			errContains: "rules[0].scope",
		},
		{
			name: "empty_pattern",
			config: `
rules:
  - pattern: ""
    action: include
`,
			wantErr:     true,
			errContains: "rules[0].pattern is required",
		},
		{
			name: "bad_elevation",
			config: `
registry:
  elevation: runas
`,
			wantErr:     true,
			errContains: "registry.elevation",
		},
		{
			name: "zero_attempts",
			config: `
auth:
  max_attempts: 0
`,
			wantErr:     true,
			errContains: "auth.max_attempts must be at least 1",
		},
		{
			name: "programs_without_destination",
			config: `
programs:
  enabled: true
  destination: ""
  include: [Evergreen]
`,
			wantErr:     true,
			errContains: "programs.destination is required",
		},
	}

	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "profilesync.yaml")
			err := os.WriteFile(configPath, []byte(tt.config), 0644)
			require.NoError(t, err, "writing config file should succeed")

			cfg, err := Load(ctx, configPath)
			if tt.wantErr {
				require.Error(t, err, "Load should return error")
				assert.Contains(t, err.Error(), tt.errContains, "error should contain expected message")
				return
			}

			require.NoError(t, err, "Load should succeed")
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")

	path := filepath.Join(t.TempDir(), "profilesync.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))
	_, err = Load(ctx, path)
	assert.ErrorContains(t, err, "no parser found")
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	_, ok := Find(dir)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "profilesync.hcl"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profilesync.json"), nil, 0o644))
	got, ok := Find(dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "profilesync.hcl"), got, "earlier names win")
}

func TestConfigString(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want string
	}{
		{
			name: "full_config",
			cfg: &Config{
				Profile: ProfileArgs{Machine: "WS-07", User: "jsmith", Destination: `D:\Backups\jsmith`},
			},
			want: `jsmith@WS-07 -> D:\Backups\jsmith`,
		},
		{
			name: "dry_run",
			cfg: &Config{
				Profile: ProfileArgs{Machine: "WS-07", User: "jsmith", Destination: `D:\Backups\jsmith`},
				DryRun:  true,
			},
			want: `jsmith@WS-07 -> D:\Backups\jsmith (dry run)`,
		},
		{
			name: "unset_profile",
			cfg:  Default(),
			want: "?@? -> ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.String(), "String() should match")
		})
	}
}

func TestConverters(t *testing.T) {
	cfg := Default()
	cfg.Profile = ProfileArgs{
		Machine:       "WS-07",
		User:          "jsmith",
		Destination:   `D:\Backups\jsmith`,
		ShareSubpath:  plan.DefaultShareSubpath,
		AppDataScopes: plan.DefaultAppDataScopes,
	}
	cfg.Rules = []RuleArgs{
		{Pattern: `AppData\Roaming`, Action: "Include"},
		{Pattern: "Downloads", Action: "exclude", Scope: "ROOT"},
	}
	cfg.Programs.Enabled = true
	cfg.Programs.Include = []string{"Evergreen"}

	t.Run("profile_spec", func(t *testing.T) {
		spec := cfg.ProfileSpec()
		assert.Equal(t, `\\WS-07\C$\Users\jsmith`, spec.SourceRoot())
		assert.Equal(t, `\\WS-07\C$\Program Files (x86)`, spec.ProgramsSource)
		assert.Equal(t, `C:\Program Files (x86)`, spec.ProgramsDestination)
		require.NoError(t, spec.Validate())
	})

	t.Run("sync_rules", func(t *testing.T) {
		assert.Equal(t, []plan.SyncRule{
			{Pattern: `AppData\Roaming`, Disposition: plan.Include},
			{Pattern: "Downloads", Disposition: plan.Exclude, Scope: plan.ScopeRoot},
			{Pattern: "Evergreen", Disposition: plan.Include, Scope: plan.ScopePrograms},
		}, cfg.SyncRules())
	})

	t.Run("programs_disabled", func(t *testing.T) {
		c := *cfg
		c.Programs.Enabled = false
		assert.Empty(t, c.ProfileSpec().ProgramsSource)
		assert.Len(t, c.SyncRules(), 2)
	})

	t.Run("resolves", func(t *testing.T) {
		p, err := plan.Resolve(cfg.ProfileSpec(), cfg.SyncRules())
		require.NoError(t, err)
		names := []string{}
		for task := range p.Tasks() {
			names = append(names, task.Name)
		}
		assert.Equal(t, []string{"profile", `AppData\Roaming`, `Program Files (x86)\Evergreen`}, names)
	})

	t.Run("robocopy_options", func(t *testing.T) {
		opts := cfg.RobocopyOptions()
		assert.Equal(t, 3, opts.Retries)
		assert.Equal(t, 5*time.Second, opts.Wait)
		assert.Equal(t, 8, opts.Threads)
		assert.True(t, opts.Restartable)
		assert.Equal(t, cfg.Copy.ExcludeFiles, opts.ExcludeFiles)
	})

	t.Run("registry_jobs", func(t *testing.T) {
		jobs := cfg.RegistryJobs()
		require.Len(t, jobs, 2)
		assert.Equal(t, `D:\Backups\jsmith\registry\HKCU_Network.reg`, jobs[0].File)
		assert.Equal(t, registry.ElevationDirect, jobs[0].Elevation)

		c := *cfg
		c.Registry.OutputDir = `E:\exports`
		c.Registry.Elevation = "psexec"
		jobs = c.RegistryJobs()
		assert.Equal(t, `E:\exports\HKCU_Network.reg`, jobs[0].File)
		assert.Equal(t, registry.ElevationHelper, jobs[0].Elevation)

		c.Registry.Enabled = false
		assert.Empty(t, c.RegistryJobs())
	})

	t.Run("shortcuts", func(t *testing.T) {
		assert.Equal(t, `D:\Backups\jsmith\Desktop`, cfg.ShortcutsDir())
		assert.Equal(t, []string{".url", ".lnk"}, cfg.MotwOptions().Extensions)
	})
}

func TestStaticCredentials(t *testing.T) {
	env := map[string]string{"SYNC_PASSWORD": "pw"}
	getenv := func(k string) string { return env[k] }

	cfg := Default()
	cfg.Auth.Username = `CORP\svc-migrate`
	cfg.Auth.PasswordEnv = "SYNC_PASSWORD"
	assert.Equal(t, auth.Credentials{Domain: "CORP", Username: "svc-migrate", Password: "pw"}, cfg.StaticCredentials(getenv))

	cfg.Auth.Domain = "LAB"
	cfg.Auth.Username = "svc"
	assert.Equal(t, auth.Credentials{Domain: "LAB", Username: "svc", Password: "pw"}, cfg.StaticCredentials(getenv))
}

func TestWriteDefault(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "conf", "profilesync.yaml")

	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(ctx, path)
	require.NoError(t, err, "the written file loads cleanly")
	assert.Equal(t, Default(), cfg, "the written file round-trips to the defaults")

	err = WriteDefault(path, false)
	assert.True(t, errors.Is(err, ErrExists), "an existing file is not overwritten")

	require.NoError(t, os.WriteFile(path, []byte("dry_run: true\n"), 0o644))
	require.NoError(t, WriteDefault(path, true))
	cfg, err = Load(ctx, path)
	require.NoError(t, err)
	assert.False(t, cfg.DryRun, "force overwrites")
}
