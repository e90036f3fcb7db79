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

// Package registry exports registry keys to .reg files, optionally through
// PsExec so the export runs inside the logged-on user's session.
package registry

import (
	"strings"

	"github.com/walteh/profilesync/pkg/execution"
	"github.com/walteh/profilesync/pkg/plan"
	"gitlab.com/tozd/go/errors"
)

// 🔐 Elevation selects how an export is run
type Elevation string

const (
	ElevationDirect Elevation = "direct" // reg export in this process's context
	ElevationHelper Elevation = "helper" // reg export wrapped in PsExec -i <session> -h
)

// ParseElevation accepts "direct" and "helper" (case-insensitive)
func ParseElevation(s string) (Elevation, error) {
	switch Elevation(strings.ToLower(strings.TrimSpace(s))) {
	case ElevationDirect:
		return ElevationDirect, nil
	case ElevationHelper, "psexec":
		return ElevationHelper, nil
	default:
		return "", errors.Errorf("unknown elevation %q (want direct or helper)", s)
	}
}

// 📦 Job exports one key to one file
type Job struct {
	Key       string
	File      string
	Elevation Elevation
}

// 📋 JobResult is the outcome of one job
type JobResult struct {
	Job    Job
	Helper string // resolved helper path, empty for direct jobs
	Result execution.Result
}

var fileNameReplacer = strings.NewReplacer(`\`, "_", "/", "_", ":", "_", " ", "_")

// FileName derives the .reg file name for a key: HKEY_ is dropped and
// separators, colons and spaces become underscores.
func FileName(key string) string {
	name := strings.TrimSpace(key)
	if len(name) >= 5 && strings.EqualFold(name[:5], "HKEY_") {
		name = name[5:]
	}
	return fileNameReplacer.Replace(name) + ".reg"
}

// JobsFor builds one job per key, writing into dir
func JobsFor(keys []string, dir string, elevation Elevation) []Job {
	jobs := make([]Job, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		jobs = append(jobs, Job{
			Key:       k,
			File:      plan.JoinPath(dir, FileName(k)),
			Elevation: elevation,
		})
	}
	return jobs
}
