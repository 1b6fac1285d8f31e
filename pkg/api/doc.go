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

// Package api runs the config-loader service.
//
// Serve reads the loader configuration from the environment, then runs the
// job executor and the HTTP server (pkg/server) side by side until the
// process receives SIGINT or SIGTERM. The application routes are the
// dataload protocol from pkg/loader:
//
//	GET  /alive   200 once the executor is running
//	POST /load    submit the initial load, optional multipart "files" bundle
//	POST /reload  submit a reload
//	GET  /result  latest job result as JSON
//
// Environment:
//
//	LOADER_COMMAND              program run for every job (required)
//	LOADER_WORK_DIR             where bundles are extracted (default os temp dir)
//	MAX_BUNDLE_BYTES            upload cap (default 256 MiB)
//	LOADER_JOB_TIMEOUT_MINUTES  per-job bound, 0 for none
//	PORT                        listen port (default 8080)
//	LOG_LEVEL                   debug, info, warn or error
package api
