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
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gmsdev/dataload/pkg/defaults"
	apperrors "github.com/gmsdev/dataload/pkg/errors"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvCommand           = "LOADER_COMMAND"
	EnvWorkDir           = "LOADER_WORK_DIR"
	EnvMaxBundleBytes    = "MAX_BUNDLE_BYTES"
	EnvJobTimeoutMinutes = "LOADER_JOB_TIMEOUT_MINUTES"
)

// DefaultMaxBundleBytes caps an uploaded override bundle.
const DefaultMaxBundleBytes int64 = 256 << 20

// Config holds the config-loader service settings.
type Config struct {
	// Command is the loader program and its arguments.
	Command []string
	// WorkDir is where bundles are extracted. Empty means os.TempDir.
	WorkDir string
	// MaxBundleBytes caps the request body of load and reload submissions.
	MaxBundleBytes int64
	// JobTimeout bounds each job. Zero means no bound.
	JobTimeout time.Duration
}

// ConfigFromEnv reads the service configuration from the environment.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		WorkDir:        strings.TrimSpace(os.Getenv(EnvWorkDir)),
		MaxBundleBytes: DefaultMaxBundleBytes,
	}

	if fields := strings.Fields(os.Getenv(EnvCommand)); len(fields) > 0 {
		cfg.Command = fields
	}

	if v := strings.TrimSpace(os.Getenv(EnvMaxBundleBytes)); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, apperrors.Newf(apperrors.ErrCodeInvalidRequest,
				"%s must be a positive integer, got %q", EnvMaxBundleBytes, v)
		}
		cfg.MaxBundleBytes = n
	}

	if v := strings.TrimSpace(os.Getenv(EnvJobTimeoutMinutes)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, apperrors.Newf(apperrors.ErrCodeInvalidRequest,
				"%s must be a non-negative integer, got %q", EnvJobTimeoutMinutes, v)
		}
		cfg.JobTimeout = time.Duration(n) * time.Minute
	}

	return cfg, nil
}

// UploadTimeout is how long reading a submission of MaxBundleBytes takes at
// defaults.MinUploadBytesPerSecond, rounded up to whole seconds.
func (c *Config) UploadTimeout() time.Duration {
	secs := (c.MaxBundleBytes + defaults.MinUploadBytesPerSecond - 1) / defaults.MinUploadBytesPerSecond
	return time.Duration(secs) * time.Second
}

// Validate checks the configuration can start a service.
func (c *Config) Validate() error {
	if len(c.Command) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, EnvCommand+" is required")
	}
	if c.WorkDir != "" {
		info, err := os.Stat(c.WorkDir)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "work directory is not accessible", err)
		}
		if !info.IsDir() {
			return apperrors.New(apperrors.ErrCodeInvalidRequest, "work directory is not a directory: "+c.WorkDir)
		}
	}
	return nil
}
