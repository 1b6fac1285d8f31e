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

// Package dataload is the client half of the dataload protocol.
//
// Run performs one load or reload against a config-loader and moves through
// these phases, reported to an optional hook:
//
//	INIT -> PACKAGING -> AWAITING_LIVE -> SUBMITTING -> AWAITING_RESULT -> SUCCESS | FAILURE
//
// INIT runs the optional preflight: when a ServiceRegistry says the instance
// has no config-loader Service, Run succeeds at once with Outcome.Skipped.
// PACKAGING builds the override bundle before any network call. The
// liveness wait is best effort; timing out only logs a warning. The result
// wait is bounded by the same timeout and fails with a TIMEOUT error.
//
//	c, err := dataload.New(dataload.InstanceURL("soh-dev", "gms.cluster.local"),
//	    dataload.WithHTTPClient(dataload.NewHTTPClient(dataload.WithInsecureSkipVerify(true))),
//	    dataload.WithTimeout(4*time.Minute),
//	)
//	out, err := c.Run(ctx, dataload.Request{Instance: "soh-dev", Kind: loader.KindInitial})
//
// Requests go through RetryTransport: GET and POST are retried on connection
// failures and on 404 (an ingress that does not route to the service yet),
// with exponential backoff from 200ms doubling up to 2m, 20 retries.
// Errors are pkg/errors StructuredErrors: INVALID_REQUEST for packaging,
// CONFLICT for a rejected submission, TIMEOUT for the result wait, INTERNAL
// for a failed job and UNAVAILABLE for exhausted retries.
package dataload
