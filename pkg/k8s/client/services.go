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

package client

import (
	"context"
	"fmt"
	"log/slog"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/gmsdev/dataload/pkg/defaults"
	apperrors "github.com/gmsdev/dataload/pkg/errors"
)

// LoaderServiceName is the Service a deployed instance exposes its
// config-loader through.
const LoaderServiceName = "config-loader"

// ServiceRegistry answers whether an instance runs a config-loader. Each
// instance lives in the namespace of the same name.
type ServiceRegistry struct {
	client  Interface
	service string
}

// NewServiceRegistry creates a registry backed by the Kubernetes API.
func NewServiceRegistry(c Interface) *ServiceRegistry {
	return &ServiceRegistry{client: c, service: LoaderServiceName}
}

// HasLoader reports whether the config-loader Service exists in instance's
// namespace. A missing Service is (false, nil); any other API failure is an
// UNAVAILABLE error, since the answer is then unknown.
func (r *ServiceRegistry) HasLoader(ctx context.Context, instance string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.K8sPreflightTimeout)
	defer cancel()

	_, err := r.client.CoreV1().Services(instance).Get(ctx, r.service, metav1.GetOptions{})
	switch {
	case err == nil:
		slog.Debug("config-loader service found", "namespace", instance)
		return true, nil
	case apierrors.IsNotFound(err):
		slog.Debug("config-loader service not found", "namespace", instance)
		return false, nil
	default:
		return false, apperrors.WrapWithContext(apperrors.ErrCodeUnavailable,
			fmt.Sprintf("failed to look up service %s", r.service), err,
			map[string]any{"namespace": instance})
	}
}
