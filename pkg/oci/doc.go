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

// Package oci publishes overrides bundles to OCI-compliant registries and
// pulls them back for load and reload.
//
// A bundle is the gzip-compressed tar produced by the overrides package. It is
// stored as the single layer of an OCI 1.1 artifact manifest with artifact type
// "application/vnd.gms.dataload.overrides", so registries that do not know the
// type treat it as an opaque blob.
//
// # Usage
//
//	ref, err := oci.ParseOutputTarget("oci://ghcr.io/acme/overrides:v1")
//	if err != nil {
//	    return err
//	}
//	res, err := oci.Push(ctx, bundle, oci.PushOptions{Reference: ref})
//
//	bundle, err = oci.Pull(ctx, oci.PullOptions{Reference: ref})
//
// Pack can target any oras.Target, which is how tests and local tooling
// inspect a bundle without a registry.
//
// # Authentication
//
// Credentials come from the Docker configuration (~/.docker/config.json)
// through the ORAS credentials store.
package oci
