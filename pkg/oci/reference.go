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

package oci

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"

	apperrors "github.com/gmsdev/dataload/pkg/errors"
)

// URIScheme marks a bundle output target as a registry reference,
// e.g. "oci://ghcr.io/acme/overrides:v1".
const URIScheme = "oci://"

// Reference is a parsed bundle output target: either a registry reference
// or a local file path.
type Reference struct {
	// IsOCI is true when the target used the oci:// scheme.
	IsOCI bool
	// Registry host, e.g. "ghcr.io" or "localhost:5000".
	Registry string
	// Repository path, e.g. "acme/overrides".
	Repository string
	// Tag may be empty; callers apply their own default.
	Tag string
	// LocalPath is set for non-OCI targets.
	LocalPath string
}

// ParseOutputTarget splits an output target into a registry reference
// (oci://registry/repository[:tag]) or a local path.
func ParseOutputTarget(target string) (*Reference, error) {
	if !strings.HasPrefix(target, URIScheme) {
		if strings.TrimSpace(target) == "" {
			return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "output target is empty")
		}
		return &Reference{LocalPath: target}, nil
	}

	named, err := reference.ParseNormalizedNamed(strings.TrimPrefix(target, URIScheme))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid OCI reference", err)
	}
	if _, ok := named.(reference.Digested); ok {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"digest references cannot be pushed to", map[string]any{"target": target})
	}

	ref := &Reference{
		IsOCI:      true,
		Registry:   reference.Domain(named),
		Repository: reference.Path(named),
	}
	if tagged, ok := named.(reference.Tagged); ok {
		ref.Tag = tagged.Tag()
	}

	if err := ValidateRegistryReference(ref.Registry, ref.Repository); err != nil {
		return nil, err
	}
	return ref, nil
}

// ValidateRegistryReference checks that registry and repository combine into
// a well-formed, untagged repository name. A leading http(s):// on the
// registry is ignored.
func ValidateRegistryReference(registry, repository string) error {
	host := stripProtocol(registry)
	if host == "" || repository == "" {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "registry and repository are required")
	}

	named, err := reference.ParseNamed(host + "/" + repository)
	if err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest, "invalid registry reference", err,
			map[string]any{"registry": registry, "repository": repository})
	}
	if _, ok := named.(reference.NamedTagged); ok || reference.Path(named) != repository {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest, "repository must not carry a tag or digest",
			map[string]any{"repository": repository})
	}
	return nil
}

// String renders the reference back into target form.
func (r *Reference) String() string {
	if !r.IsOCI {
		return r.LocalPath
	}
	return URIScheme + r.ImageReference()
}

// ImageReference returns registry/repository[:tag] without the scheme, or
// an empty string for local targets.
func (r *Reference) ImageReference() string {
	if !r.IsOCI {
		return ""
	}
	if r.Tag == "" {
		return fmt.Sprintf("%s/%s", r.Registry, r.Repository)
	}
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// WithTag returns a copy carrying tag. Local targets are returned as is.
func (r *Reference) WithTag(tag string) *Reference {
	if !r.IsOCI {
		return r
	}
	cp := *r
	cp.Tag = tag
	return &cp
}
