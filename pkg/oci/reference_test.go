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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gmsdev/dataload/pkg/errors"
)

func TestParseOutputTarget(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Reference
		wantErr bool
	}{
		{name: "relative file", input: "./overrides.tar.gz", want: Reference{LocalPath: "./overrides.tar.gz"}},
		{name: "absolute file", input: "/tmp/ov.tgz", want: Reference{LocalPath: "/tmp/ov.tgz"}},
		{name: "stdout dash", input: "-", want: Reference{LocalPath: "-"}},
		{
			name:  "registry with tag",
			input: "oci://ghcr.io/acme/overrides:v1.0.0",
			want:  Reference{IsOCI: true, Registry: "ghcr.io", Repository: "acme/overrides", Tag: "v1.0.0"},
		},
		{
			name:  "registry without tag",
			input: "oci://ghcr.io/acme/overrides",
			want:  Reference{IsOCI: true, Registry: "ghcr.io", Repository: "acme/overrides"},
		},
		{
			name:  "registry with port",
			input: "oci://localhost:5000/team/overrides:dev",
			want:  Reference{IsOCI: true, Registry: "localhost:5000", Repository: "team/overrides", Tag: "dev"},
		},
		{
			name:  "short name normalizes to docker hub",
			input: "oci://overrides:v2",
			want:  Reference{IsOCI: true, Registry: "docker.io", Repository: "library/overrides", Tag: "v2"},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "uppercase repository", input: "oci://ghcr.io/Acme/Overrides:v1", wantErr: true},
		{name: "bad tag", input: "oci://ghcr.io/acme/overrides:bad tag", wantErr: true},
		{name: "digest", input: "oci://ghcr.io/acme/overrides@sha256:" + sha, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutputTarget(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

const sha = "0000000000000000000000000000000000000000000000000000000000000000"

func TestValidateRegistryReference(t *testing.T) {
	tests := []struct {
		name       string
		registry   string
		repository string
		wantErr    bool
	}{
		{name: "ghcr", registry: "ghcr.io", repository: "acme/overrides"},
		{name: "localhost with port", registry: "localhost:5000", repository: "test/repo"},
		{name: "https prefix", registry: "https://ghcr.io", repository: "acme/overrides"},
		{name: "nested repository", registry: "registry.example.com:5000", repository: "org/team/project"},
		{name: "space in registry", registry: "invalid registry", repository: "test/repo", wantErr: true},
		{name: "uppercase repository", registry: "ghcr.io", repository: "Acme/Overrides", wantErr: true},
		{name: "repository with digest marker", registry: "ghcr.io", repository: "test/repo@latest", wantErr: true},
		{name: "repository with tag", registry: "ghcr.io", repository: "test/repo:v1", wantErr: true},
		{name: "missing repository", registry: "ghcr.io", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistryReference(tt.registry, tt.repository)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReference_Rendering(t *testing.T) {
	ref := &Reference{IsOCI: true, Registry: "ghcr.io", Repository: "acme/overrides"}
	assert.Equal(t, "oci://ghcr.io/acme/overrides", ref.String())
	assert.Equal(t, "ghcr.io/acme/overrides", ref.ImageReference())

	tagged := ref.WithTag("v3")
	assert.Equal(t, "oci://ghcr.io/acme/overrides:v3", tagged.String())
	assert.Equal(t, "ghcr.io/acme/overrides:v3", tagged.ImageReference())
	assert.Empty(t, ref.Tag, "WithTag must not mutate the receiver")

	local := &Reference{LocalPath: "out.tgz"}
	assert.Equal(t, "out.tgz", local.String())
	assert.Empty(t, local.ImageReference())
	assert.Same(t, local, local.WithTag("v1"))
}
