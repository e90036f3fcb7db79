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

// Package robocopy renders copy tasks into robocopy invocations and
// interprets robocopy's bitmask exit codes.
package robocopy

import (
	"fmt"
	"strconv"
	"time"

	"github.com/walteh/profilesync/pkg/execution"
	"github.com/walteh/profilesync/pkg/plan"
)

// Tool is the executable name
const Tool = "robocopy"

// ⚙️ Options are the global copy switches shared by every task
type Options struct {
	Mirror             bool          // /MIR instead of /S
	Retries            int           // /R:n
	Wait               time.Duration // /W:n, rounded down to seconds
	PreserveTimestamps bool          // /COPY:DAT /DCOPY:T
	Restartable        bool          // /Z
	Threads            int           // /MT:n, 0 leaves robocopy's default
	Quiet              bool          // /NFL /NDL /NP
	ExcludeFiles       []string      // /XF
	ExcludeDirs        []string      // /XD, applied to every task
	TempPatterns       []string      // /XF, always appended
	Extra              []string      // passed through verbatim before the exclusions
}

// 🏭 DefaultOptions returns the switch set used for profile transfers
func DefaultOptions() Options {
	return Options{
		Retries:            3,
		Wait:               5 * time.Second,
		PreserveTimestamps: true,
		Restartable:        true,
		Threads:            8,
		Quiet:              true,
		ExcludeFiles: []string{
			"NTUSER.DAT",
			"ntuser.dat.LOG1",
			"ntuser.dat.LOG2",
			"UsrClass.dat",
			"UsrClass.dat.LOG1",
			"UsrClass.dat.LOG2",
		},
		ExcludeDirs: []string{
			`Default\Cache`,
			`Default\Code Cache`,
		},
		TempPatterns: []string{"*.tmp", "~$*"},
	}
}

// 🔨 Build renders one task into a robocopy invocation. It has no side effects.
func Build(task plan.CopyTask, opts Options, dryRun bool) execution.Invocation {
	args := []string{task.Source, task.Destination}

	if opts.Mirror {
		args = append(args, "/MIR")
	} else {
		args = append(args, "/S")
	}
	if opts.Restartable {
		args = append(args, "/Z")
	}
	if opts.Threads > 0 {
		args = append(args, fmt.Sprintf("/MT:%d", opts.Threads))
	}

	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	wait := int(opts.Wait / time.Second)
	if wait < 0 {
		wait = 0
	}
	args = append(args, "/R:"+strconv.Itoa(retries), "/W:"+strconv.Itoa(wait))

	if opts.PreserveTimestamps {
		args = append(args, "/COPY:DAT", "/DCOPY:T")
	} else {
		args = append(args, "/COPY:DA")
	}
	if opts.Quiet {
		args = append(args, "/NFL", "/NDL", "/NP")
	}

	args = append(args, opts.Extra...)

	dirs := append(append([]string(nil), task.ExcludeDirs...), opts.ExcludeDirs...)
	if len(dirs) > 0 {
		args = append(args, "/XD")
		args = append(args, dirs...)
	}

	files := append(append([]string(nil), opts.ExcludeFiles...), opts.TempPatterns...)
	if len(files) > 0 {
		args = append(args, "/XF")
		args = append(args, files...)
	}

	return execution.NewInvocation(execution.KindCopy, Tool, args,
		execution.WithSimulate(dryRun),
		execution.WithClassifier(Classify),
	)
}
