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

// Package server is the HTTP shell the config-loader service runs in.
//
// It owns the listener lifecycle, the operational endpoints and a middleware
// chain shared by every application route. Application handlers (the dataload
// protocol in pkg/loader) are registered through WithHandler:
//
//	s := server.New(
//	    server.WithName("config-loader"),
//	    server.WithVersion(version),
//	    server.WithHandler(map[string]http.HandlerFunc{
//	        "/alive": h.Alive,
//	        "/load":  h.Load,
//	    }),
//	)
//	if err := s.Start(ctx); err != nil { ... }
//
// # Endpoints
//
//	GET /health   process liveness, always 200 while serving
//	GET /ready    200 once the listener is up, 503 during startup/shutdown
//	GET /metrics  Prometheus exposition
//	GET /         service name, version and registered routes
//
// # Middleware
//
// Application routes pass through, outermost first: metrics, API version
// negotiation (Accept: application/vnd.gms.dataload.v1+json), request ID
// (X-Request-Id, generated when absent), panic recovery, rate limiting
// (golang.org/x/time/rate, 429 with Retry-After) and request logging.
//
// # Errors
//
// Errors produced by the shell itself use a single JSON envelope:
//
//	{
//	  "code": "RATE_LIMIT_EXCEEDED",
//	  "message": "rate limit exceeded",
//	  "requestId": "550e8400-e29b-41d4-a716-446655440000",
//	  "timestamp": "2026-01-02T15:04:05Z",
//	  "retryable": true
//	}
//
// The status is derived from the pkg/errors code via HTTPStatusFromCode.
//
// # Configuration
//
//	PORT                      listen port (default 8080)
//	SHUTDOWN_TIMEOUT_SECONDS  graceful shutdown budget (default 30)
//
// When started under systemd with Type=notify the server reports READY=1 once
// listening and STOPPING=1 on shutdown.
package server
