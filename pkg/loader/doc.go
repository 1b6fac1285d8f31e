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

// Package loader is the server half of the dataload protocol.
//
// An instance moves through three states:
//
//	READY --load--> LOADING --finish--> LOADED --reload--> LOADING ...
//
// StateMachine admits at most one job at a time. Executor runs the admitted
// job on its own goroutine through a Loader and publishes the Result to a
// ResultStore, then releases the state machine. A job that fails, or whose
// loader panics, still ends in LOADED; only a reload can retry it.
//
// Handler exposes the protocol over HTTP:
//
//	GET  /alive   200 "alive" once the executor is running
//	POST /load    200 "load queued" | 200 ignored (already loading) | 500 already loaded
//	POST /reload  200 "load queued" | 200 ignored (already loading) | 500 never loaded
//	GET  /result  {"status": "PENDING"|"FINISHED", "successful": bool, "result": "..."}
//
// Submissions are multipart forms whose optional "files" part is an override
// bundle built by pkg/overrides. The bundle is extracted into a per-job
// directory before the Loader is called.
package loader
