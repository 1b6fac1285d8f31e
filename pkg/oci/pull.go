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
	"context"
	"log/slog"

	"github.com/gmsdev/dataload/pkg/defaults"
	apperrors "github.com/gmsdev/dataload/pkg/errors"
)

// PullOptions selects a published bundle.
type PullOptions struct {
	// Reference must be an oci:// reference with a tag.
	Reference   *Reference
	PlainHTTP   bool
	InsecureTLS bool
}

// Pull downloads the overrides bundle published at opts.Reference.
func Pull(ctx context.Context, opts PullOptions) ([]byte, error) {
	ref := opts.Reference
	if ref == nil || !ref.IsOCI {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "an oci:// reference is required")
	}
	if ref.Tag == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "tag is required for OCI pull")
	}
	if err := ValidateRegistryReference(ref.Registry, ref.Repository); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaults.OCIPullTimeout)
	defer cancel()

	repo, err := newRepository(ref, opts.PlainHTTP, opts.InsecureTLS)
	if err != nil {
		return nil, err
	}

	slog.Info("pulling overrides bundle", "reference", ref.ImageReference())
	bundle, err := FetchBundle(ctx, repo, ref.Tag)
	if err != nil {
		return nil, err
	}
	slog.Info("overrides bundle pulled", "reference", ref.ImageReference(), "size", len(bundle))
	return bundle, nil
}
