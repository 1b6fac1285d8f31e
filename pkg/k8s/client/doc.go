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

// Package client builds Kubernetes clients and runs the config-loader
// preflight check.
//
// BuildKubeClient resolves the kubeconfig the way kubectl does (flag,
// KUBECONFIG, ~/.kube/config) and falls back to in-cluster credentials:
//
//	clientset, _, err := client.BuildKubeClient(kubeconfigFlag)
//	if err != nil {
//	    return err
//	}
//	ok, err := client.NewServiceRegistry(clientset).HasLoader(ctx, "my-instance")
//
// HasLoader only reads the config-loader Service; nothing here mutates the
// cluster.
package client
