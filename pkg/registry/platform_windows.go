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

//go:build windows

package registry

import (
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/windows"
	winreg "golang.org/x/sys/windows/registry"
)

const invalidSession = 0xFFFFFFFF

// consoleSession returns the session of the user logged on at the console
func consoleSession() (int, bool) {
	id := windows.WTSGetActiveConsoleSessionId()
	if id == invalidSession {
		return 0, false
	}
	return int(id), true
}

// elevated reports whether this process runs with the Administrators group enabled
func elevated() (bool, error) {
	var admins *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&admins)
	if err != nil {
		return false, errors.Errorf("building administrators sid: %w", err)
	}
	defer windows.FreeSid(admins)

	member, err := windows.Token(0).IsMember(admins)
	if err != nil {
		return false, errors.Errorf("checking token membership: %w", err)
	}
	return member, nil
}

var roots = map[string]winreg.Key{
	"HKLM":                winreg.LOCAL_MACHINE,
	"HKEY_LOCAL_MACHINE":  winreg.LOCAL_MACHINE,
	"HKCU":                winreg.CURRENT_USER,
	"HKEY_CURRENT_USER":   winreg.CURRENT_USER,
	"HKCR":                winreg.CLASSES_ROOT,
	"HKEY_CLASSES_ROOT":   winreg.CLASSES_ROOT,
	"HKU":                 winreg.USERS,
	"HKEY_USERS":          winreg.USERS,
	"HKCC":                winreg.CURRENT_CONFIG,
	"HKEY_CURRENT_CONFIG": winreg.CURRENT_CONFIG,
}

// keyExists opens key read-only in this process's view of the registry
func keyExists(key string) (bool, error) {
	root, path, _ := strings.Cut(strings.Trim(key, `\`), `\`)
	k, ok := roots[strings.ToUpper(root)]
	if !ok {
		return false, errors.Errorf("unknown registry root %q", root)
	}
	h, err := winreg.OpenKey(k, path, winreg.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, winreg.ErrNotExist) {
			return false, nil
		}
		return false, errors.Errorf("opening %s: %w", key, err)
	}
	defer h.Close()
	return true, nil
}
