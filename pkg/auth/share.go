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

package auth

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"strings"

	"github.com/walteh/profilesync/pkg/execution"
	"gitlab.com/tozd/go/errors"
)

// ShareRoot extracts \\server\share from a UNC path
func ShareRoot(path string) (string, bool) {
	p := strings.ReplaceAll(path, "/", `\`)
	if !strings.HasPrefix(p, `\\`) {
		return "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(p, `\\`), `\`, 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return `\\` + parts[0] + `\` + parts[1], true
}

// 🌐 NetUseConnector connects with `net use`, through the execution engine
type NetUseConnector struct {
	Exec execution.Executor
}

var _ Connector = (*NetUseConnector)(nil)

// Invocation builds the net use command for one attempt
func (c *NetUseConnector) Invocation(share string, creds Credentials) execution.Invocation {
	args := []string{"use", share}
	if creds.Password != "" {
		args = append(args, creds.Password)
	}
	args = append(args, "/user:"+creds.Account(), "/persistent:no")
	return execution.NewInvocation(execution.KindConnect, "net", args, execution.WithSecret(creds.Password))
}

func (c *NetUseConnector) Connect(ctx context.Context, share string, creds Credentials) error {
	res := c.Exec.Execute(ctx, c.Invocation(share, creds))
	if res.Outcome == execution.OutcomeSuccess {
		return nil
	}
	if res.Err != nil {
		return errors.Errorf("connecting to %s: %w", share, res.Err)
	}
	return errors.Errorf("connecting to %s as %s: net use exited with %d: %s", share, creds.Account(), res.ExitCode, lastLine(res.Output))
}

func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if l := bytes.TrimSpace(lines[i]); len(l) > 0 {
			return string(l)
		}
	}
	return "no output"
}

// 🔎 Prober checks that a path is reachable without changing anything
type Prober interface {
	Probe(ctx context.Context, path string) error
}

// StatProber probes with a directory stat
type StatProber struct {
	Stat func(name string) (fs.FileInfo, error)
}

var _ Prober = (*StatProber)(nil)

func (p *StatProber) Probe(ctx context.Context, path string) error {
	stat := p.Stat
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(path)
	if err != nil {
		return errors.Errorf("probing %s: %w", path, err)
	}
	if !info.IsDir() {
		return errors.Errorf("probing %s: not a directory", path)
	}
	return nil
}
