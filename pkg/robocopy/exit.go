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

package robocopy

import (
	"bytes"
	"strings"

	"github.com/walteh/profilesync/pkg/execution"
)

// Exit code bits
const (
	BitCopied     = 1  // one or more files copied
	BitExtra      = 2  // extra files or directories at the destination
	BitMismatch   = 4  // mismatched files or directories
	BitFailed     = 8  // some files could not be copied
	BitFatalError = 16 // usage error or no access to source/destination
)

var accessMarkers = [][]byte{
	[]byte("ERROR 5 ("),
	[]byte("ERROR 53 ("),
	[]byte("ERROR 1326 ("),
	[]byte("Access is denied"),
	[]byte("The user name or password is incorrect"),
}

// 🔢 Classify maps a robocopy exit code to an outcome
func Classify(code int, output []byte) execution.Outcome {
	switch {
	case code < 0:
		return execution.OutcomeFailed
	case code&(BitFailed|BitFatalError) != 0:
		if accessDenied(output) {
			return execution.OutcomeAccessDenied
		}
		return execution.OutcomeFailed
	case code&BitMismatch != 0:
		return execution.OutcomePartialSuccess
	default:
		return execution.OutcomeSuccess
	}
}

func accessDenied(output []byte) bool {
	for _, m := range accessMarkers {
		if bytes.Contains(output, m) {
			return true
		}
	}
	return false
}

// Describe explains the bits set in a robocopy exit code
func Describe(code int) string {
	if code < 0 {
		return "not run"
	}
	if code == 0 {
		return "no changes"
	}
	var parts []string
	if code&BitCopied != 0 {
		parts = append(parts, "files copied")
	}
	if code&BitExtra != 0 {
		parts = append(parts, "extra files")
	}
	if code&BitMismatch != 0 {
		parts = append(parts, "mismatches")
	}
	if code&BitFailed != 0 {
		parts = append(parts, "copy failures")
	}
	if code&BitFatalError != 0 {
		parts = append(parts, "fatal error")
	}
	return strings.Join(parts, ", ")
}
