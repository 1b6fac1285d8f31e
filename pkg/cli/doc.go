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

// Package cli implements the dataload command-line interface.
//
// # Commands
//
// load - Perform the initial configuration load:
//
//	dataload load --name demo --host dev.example.com --config ./overrides
//
// Checks the cluster for a config-loader service (skipped with
// --skip-preflight), packages the override directory, waits for the
// config-loader to answer /alive, submits the load and polls /result until
// the job finishes. Instances without a config-loader succeed without
// sending anything.
//
// reload - Same flow against /reload. The config-loader rejects a reload
// before the initial load.
//
// result - Print the latest job result, optionally waiting for it:
//
//	dataload result --url http://localhost:8080 --wait --format json
//
// bundle - Package an override directory to a file or an OCI registry:
//
//	dataload bundle --config ./overrides --output oci://ghcr.io/acme/overrides:v1
//
// # Target Flags
//
//	--name, -n        instance name (DATALOAD_NAME)
//	--host            cluster ingress host (KUBECTL_HOST)
//	--url             explicit base URL, overrides --name/--host (DATALOAD_URL)
//	--timeout         minutes for each wait, default 4 (DATALOAD_TIMEOUT)
//	--insecure-tls    skip TLS verification; implied for gms.cluster.local
//	--kubeconfig      kubeconfig for the preflight check (KUBECONFIG)
//	--skip-preflight  do not look for the config-loader service
//
// # Output
//
// Outcomes and results are written with pkg/serializer as yaml (default),
// json or table, to stdout or the --output file. Logs go to stderr as JSON;
// the level comes from --log-level or LOG_LEVEL.
//
// # Exit Codes
//
//	0  the job finished successfully, or the instance has no config-loader
//	1  packaging failed, the submission was rejected, the result wait timed
//	   out or the job failed
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/gmsdev/dataload/pkg/cli.version=1.0.0'"
package cli
