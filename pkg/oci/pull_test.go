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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gmsdev/dataload/pkg/errors"
)

func TestPull_Validation(t *testing.T) {
	refs := map[string]*Reference{
		"nil reference":  nil,
		"local path":     {LocalPath: "./overrides"},
		"missing tag":    {IsOCI: true, Registry: "ghcr.io", Repository: "acme/overrides"},
		"bad repository": {IsOCI: true, Registry: "ghcr.io", Repository: "Bad Repo", Tag: "v1"},
	}
	for name, ref := range refs {
		t.Run(name, func(t *testing.T) {
			_, err := Pull(context.Background(), PullOptions{Reference: ref})
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
		})
	}
}

func TestNewRepository(t *testing.T) {
	ref := &Reference{IsOCI: true, Registry: "http://registry.local:5000", Repository: "acme/overrides", Tag: "v1"}
	repo, err := newRepository(ref, true, false)
	require.NoError(t, err)
	assert.True(t, repo.PlainHTTP)
	assert.Equal(t, "registry.local:5000", repo.Reference.Registry)
	assert.Equal(t, "acme/overrides", repo.Reference.Repository)
}
