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

package registry

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/walteh/profilesync/pkg/execution"
	"gitlab.com/tozd/go/errors"
)

// DefaultHelperName is the elevation helper's executable
const DefaultHelperName = "PsExec.exe"

// 🔎 Locator finds the helper executable. An explicit Override must exist;
// otherwise the working directory, SearchDirs and then PATH are tried in order.
type Locator struct {
	Name       string
	Override   string
	SearchDirs []string

	Getwd    func() (string, error)
	LookPath func(file string) (string, error)
	Stat     func(name string) (fs.FileInfo, error)
}

func (l Locator) name() string {
	if l.Name == "" {
		return DefaultHelperName
	}
	return l.Name
}

func (l Locator) stat(name string) (fs.FileInfo, error) {
	if l.Stat != nil {
		return l.Stat(name)
	}
	return os.Stat(name)
}

func (l Locator) isFile(path string) bool {
	info, err := l.stat(path)
	return err == nil && !info.IsDir()
}

// Find returns the helper path or a *execution.ToolMissingError
func (l Locator) Find() (string, error) {
	name := l.name()

	if l.Override != "" {
		if l.isFile(l.Override) {
			return l.Override, nil
		}
		return "", &execution.ToolMissingError{Name: name, Err: errors.Errorf("configured path %s does not exist", l.Override)}
	}

	getwd := l.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	var dirs []string
	if wd, err := getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	dirs = append(dirs, l.SearchDirs...)

	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if l.isFile(candidate) {
			return candidate, nil
		}
	}

	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(name)
	if err != nil {
		return "", &execution.ToolMissingError{Name: name, Err: err}
	}
	return path, nil
}
