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


package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/walteh/profilesync/cmd/profilesync/opts"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

func main() {
	enableANSIConsole()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, opts.New(), os.Args[1:])
	stop()

	os.Exit(code)
}

// run executes the command line and returns the process exit status
func run(ctx context.Context, o *opts.RootOpts, args []string) int {
	cmd := newRootCmd(o)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)

	var exitErr *opts.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.Err == nil) {
		fmt.Fprintln(o.Stderr, color.RedString(status.FormatError(err)))
	}
	return opts.ExitCode(err)
}
