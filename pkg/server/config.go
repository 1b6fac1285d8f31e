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

package server

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gmsdev/dataload/pkg/defaults"
)

// Environment variables read by NewConfig.
const (
	EnvPort                   = "PORT"
	EnvAddress                = "ADDRESS"
	EnvRateLimit              = "RATE_LIMIT"
	EnvRateLimitBurst         = "RATE_LIMIT_BURST"
	EnvShutdownTimeoutSeconds = "SHUTDOWN_TIMEOUT_SECONDS"
	EnvReadTimeoutSeconds     = "READ_TIMEOUT_SECONDS"
)

const (
	defaultPort           = 8080
	defaultRateLimit      = rate.Limit(100)
	defaultRateLimitBurst = 200
)

// Config holds the listener settings. Handlers are mounted behind the
// middleware chain; /health, /ready and /metrics are always present.
type Config struct {
	Name    string
	Version string

	Handlers map[string]http.HandlerFunc

	Address string
	Port    int

	// RateLimit is in requests per second.
	RateLimit      rate.Limit
	RateLimitBurst int

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// NewConfig returns defaults overridden by the environment. Malformed
// values are logged and ignored.
func NewConfig() *Config {
	cfg := &Config{
		Name:              "server",
		Version:           "undefined",
		Port:              defaultPort,
		RateLimit:         defaultRateLimit,
		RateLimitBurst:    defaultRateLimitBurst,
		ReadTimeout:       defaults.ServerReadTimeout,
		ReadHeaderTimeout: defaults.ServerReadHeaderTimeout,
		WriteTimeout:      defaults.ServerWriteTimeout,
		IdleTimeout:       defaults.ServerIdleTimeout,
		ShutdownTimeout:   defaults.ServerShutdownTimeout,
	}

	cfg.Address = strings.TrimSpace(os.Getenv(EnvAddress))
	if port, ok := envInt(EnvPort); ok && port > 0 && port < 65536 {
		cfg.Port = port
	}
	if limit, ok := envInt(EnvRateLimit); ok && limit > 0 {
		cfg.RateLimit = rate.Limit(limit)
	}
	if burst, ok := envInt(EnvRateLimitBurst); ok && burst > 0 {
		cfg.RateLimitBurst = burst
	}
	if seconds, ok := envInt(EnvReadTimeoutSeconds); ok && seconds > 0 {
		cfg.ReadTimeout = time.Duration(seconds) * time.Second
	}
	if seconds, ok := envInt(EnvShutdownTimeoutSeconds); ok && seconds > 0 {
		cfg.ShutdownTimeout = time.Duration(seconds) * time.Second
	}
	return cfg
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("ignoring malformed environment value", "key", key, "value", raw)
		return 0, false
	}
	return v, true
}
