// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Loader performs the actual configuration load for a job. overridesDir is
// the directory the job's bundle was extracted to, or empty when the job
// carries none. The returned message is reported to the client.
type Loader interface {
	Load(ctx context.Context, job *Job, overridesDir string) (string, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, job *Job, overridesDir string) (string, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, job *Job, overridesDir string) (string, error) {
	return f(ctx, job, overridesDir)
}

// Environment passed to the loader command.
const (
	EnvJobKind      = "DATALOAD_KIND"
	EnvJobID        = "DATALOAD_JOB_ID"
	EnvOverridesDir = "DATALOAD_OVERRIDES_DIR"
)

// commandWaitDelay bounds how long Load waits for output pipes to close
// after the command was killed.
const commandWaitDelay = 5 * time.Second

// ErrNoCommand is returned when a CommandLoader has nothing to run.
var ErrNoCommand = errors.New("no loader command configured")

// CommandLoader runs an external program per job. Its combined output
// becomes the result message.
type CommandLoader struct {
	Command []string
	// Env is appended to the server's own environment.
	Env []string
}

// NewCommandLoader splits command on whitespace.
func NewCommandLoader(command string) *CommandLoader {
	return &CommandLoader{Command: strings.Fields(command)}
}

// Load runs the command and waits for it. A non-zero exit is a failure whose
// error carries the output. Cancelling ctx kills the command together with
// any processes it started.
func (c *CommandLoader) Load(ctx context.Context, job *Job, overridesDir string) (string, error) {
	if len(c.Command) == 0 {
		return "", ErrNoCommand
	}

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...) //nolint:gosec // operator-configured command
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Env = append(cmd.Env,
		EnvJobKind+"="+string(job.Kind),
		EnvJobID+"="+job.ID.String(),
		EnvOverridesDir+"="+overridesDir,
	)
	killProcessGroup(cmd)
	cmd.WaitDelay = commandWaitDelay

	out, err := cmd.CombinedOutput()
	msg := strings.TrimSpace(string(out))
	if err != nil {
		if msg == "" {
			return "", fmt.Errorf("loader command failed: %w", err)
		}
		return msg, fmt.Errorf("loader command failed: %w: %s", err, msg)
	}

	if msg == "" {
		msg = fmt.Sprintf("%s load complete", strings.ToLower(string(job.Kind)))
	}
	return msg, nil
}
