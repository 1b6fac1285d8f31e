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

package defaults

import "time"

// Server timeouts for the config-loader HTTP listener.
const (
	// ServerReadTimeout is the maximum duration for reading a request, including
	// an uploaded override bundle.
	ServerReadTimeout = 30 * time.Second

	// MinUploadBytesPerSecond is the slowest bundle upload the config loader
	// waits out; the read timeout grows with the bundle cap at this rate.
	MinUploadBytesPerSecond = 1 << 20

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Dataload protocol timing.
const (
	// DataloadTimeout bounds both the liveness wait and the result wait.
	// The CLI exposes it in whole minutes.
	DataloadTimeout = 4 * time.Minute

	// DataloadPollInterval is the fixed cadence of the liveness and result loops.
	DataloadPollInterval = 1 * time.Second

	// DataloadAliveNotice is how often a "still waiting" message is logged
	// while waiting for the config loader to come alive.
	DataloadAliveNotice = 30 * time.Second

	// DataloadResultNotice is how often a "still waiting" message is logged
	// while waiting for the dataload result.
	DataloadResultNotice = 15 * time.Second
)

// Transport retry parameters for dataload HTTP calls.
const (
	// RetryMaxAttempts is the retry budget of a single HTTP call (retries, not
	// counting the first attempt).
	RetryMaxAttempts = 20

	// RetryInitialInterval is the first backoff delay; it doubles each retry.
	RetryInitialInterval = 200 * time.Millisecond

	// RetryMaxInterval caps a single backoff delay.
	RetryMaxInterval = 2 * time.Minute
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for a single HTTP attempt.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second
)

// Kubernetes timeouts for K8s API operations.
const (
	// K8sPreflightTimeout bounds the config-loader Service lookup.
	K8sPreflightTimeout = 30 * time.Second
)

// OCI publishing.
const (
	// OCIPushTimeout bounds pushing an override bundle to a registry.
	OCIPushTimeout = 5 * time.Minute

	// OCIPullTimeout bounds fetching an override bundle for load or reload.
	OCIPullTimeout = 2 * time.Minute
)
