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
	"path/filepath"
	"strings"
)

const (
	// DefaultShareSubpath is where profiles live on the administrative share
	DefaultShareSubpath = `C$\Users`
	appDataDir          = "AppData"
)

// DefaultAppDataScopes are the AppData sub-folders rules may address
var DefaultAppDataScopes = []string{"Local", "Roaming", "LocalLow"}

// 👤 ProfileSpec identifies the profile to copy and where it goes
type ProfileSpec struct {
	Machine     string
	User        string
	Destination string

	ShareSubpath  string   // defaults to DefaultShareSubpath
	SourcePath    string   // overrides the UNC path built from Machine and User
	AppDataScopes []string // defaults to DefaultAppDataScopes

	ProgramsSource      string // full path; empty disables the programs scope
	ProgramsDestination string
}

// SourceRoot returns the profile folder to copy from
func (p ProfileSpec) SourceRoot() string {
	if p.SourcePath != "" {
		return p.SourcePath
	}
	share := p.ShareSubpath
	if share == "" {
		share = DefaultShareSubpath
	}
	machine := strings.TrimLeft(p.Machine, `\/`)
	return JoinPath(`\\`+machine, share, p.User)
}

// AppDataSource returns <source root>\AppData
func (p ProfileSpec) AppDataSource() string {
	return JoinPath(p.SourceRoot(), appDataDir)
}

func (p ProfileSpec) appDataScopes() []string {
	if len(p.AppDataScopes) == 0 {
		return DefaultAppDataScopes
	}
	return p.AppDataScopes
}

// HasAppDataScope reports whether name is a configured AppData scope (case-insensitive)
func (p ProfileSpec) HasAppDataScope(name string) bool {
	for _, s := range p.appDataScopes() {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// HasPrograms reports whether the programs scope is configured
func (p ProfileSpec) HasPrograms() bool {
	return p.ProgramsSource != "" && p.ProgramsDestination != ""
}

// 🔍 Validate checks the profile invariants
func (p ProfileSpec) Validate() error {
	if p.SourcePath == "" {
		if strings.TrimLeft(p.Machine, `\/`) == "" {
			return &ConfigurationError{Index: -1, Reason: "source machine is required"}
		}
		if p.User == "" {
			return &ConfigurationError{Index: -1, Reason: "source user is required"}
		}
		if strings.ContainsAny(p.User, `\/:`) {
			return &ConfigurationError{Index: -1, Reason: "source user must be a plain account name"}
		}
	}
	if p.Destination == "" {
		return &ConfigurationError{Index: -1, Reason: "destination is required"}
	}
	if !IsAbsolute(p.Destination) {
		return &ConfigurationError{Index: -1, Reason: "destination must be an absolute local or UNC path: " + p.Destination}
	}
	if SamePath(p.Destination, p.SourceRoot()) {
		return &ConfigurationError{Index: -1, Reason: "destination must differ from the source path"}
	}
	if p.ProgramsSource != "" && p.ProgramsDestination == "" {
		return &ConfigurationError{Index: -1, Reason: "programs destination is required when a programs source is set"}
	}
	return nil
}

// IsUNC reports whether path is a \\server\share path
func IsUNC(path string) bool {
	return strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, `//`)
}

func hasDriveLetter(path string) bool {
	if len(path) < 3 || path[1] != ':' || (path[2] != '\\' && path[2] != '/') {
		return false
	}
	c := path[0] | 0x20
	return c >= 'a' && c <= 'z'
}

func windowsStyle(path string) bool {
	return IsUNC(path) || (len(path) >= 2 && path[1] == ':') || strings.Contains(path, `\`)
}

// IsAbsolute accepts drive-letter, UNC and host-absolute paths
func IsAbsolute(path string) bool {
	return hasDriveLetter(path) || IsUNC(path) || filepath.IsAbs(path)
}

func normalize(path string) string {
	p := strings.ToLower(strings.ReplaceAll(path, "/", `\`))
	if len(p) > 3 || (len(p) > 1 && !hasDriveLetter(p)) {
		p = strings.TrimRight(p, `\`)
	}
	return p
}

// SamePath compares two paths the way Windows does: case-insensitively, either separator
func SamePath(a, b string) bool {
	return normalize(a) == normalize(b)
}

// 🔗 JoinPath joins path elements. Windows-style bases are joined with \ so that
// plans for remote machines render the same on every host.
func JoinPath(base string, elems ...string) string {
	if !windowsStyle(base) {
		return filepath.Join(append([]string{base}, elems...)...)
	}
	out := strings.TrimRight(base, `\/`)
	if IsUNC(base) && out == "" {
		out = `\`
	}
	for _, e := range elems {
		e = strings.Trim(strings.ReplaceAll(e, "/", `\`), `\`)
		if e == "" || e == "." {
			continue
		}
		out += `\` + e
	}
	return out
}
