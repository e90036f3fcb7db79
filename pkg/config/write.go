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
	"bytes"
	"io/fs"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

const defaultHeader = `# profilesync configuration
#
# rules are applied in order and the last matching rule wins.
# appdata rules are relative to <profile>\AppData and must start with a
# configured appdata scope (Local, Roaming, LocalLow).
`

// ErrExists is returned by WriteDefault when the file is already present
var ErrExists = errors.Base("config file already exists")

// 📄 Marshal renders cfg as YAML
func (cfg *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, errors.Errorf("encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Errorf("encoding YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// ✍️ WriteDefault writes the default configuration to path. An existing file
// is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.WithDetails(ErrExists, "path", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Errorf("checking %s: %w", path, err)
	}

	body, err := Default().Marshal()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), body...), 0o644); err != nil {
		return errors.Errorf("writing %s: %w", path, err)
	}
	return nil
}
