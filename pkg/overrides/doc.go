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

// Package overrides packages a user override directory into the archive the
// config-loader accepts, and unpacks it again on the server.
//
// Only three subdirectories of the override root are recognized:
//
//	processing/
//	station-reference/stationdata/
//	user-preferences/
//
// Entries keep their path relative to the override root, so
// processing/a.json stays processing/a.json on the far side. Names starting
// with "." are dropped, and hidden directories are not descended into.
//
// The archive is a gzip-compressed tar:
//
//	data, err := overrides.Package("/home/me/gms-overrides")
//	...
//	n, err := overrides.Extract(bytes.NewReader(data), workDir)
package overrides
