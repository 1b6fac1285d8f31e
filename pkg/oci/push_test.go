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
	"encoding/json"
	"net/http"
	"testing"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"

	apperrors "github.com/gmsdev/dataload/pkg/errors"
)

func TestPack_ManifestLayout(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bundle := []byte("not really gzip but opaque to the registry")

	desc, err := Pack(ctx, store, bundle, "v1", map[string]string{
		ociv1.AnnotationVersion: "1.2.3",
		ociv1.AnnotationCreated: "2025-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, ociv1.MediaTypeImageManifest, desc.MediaType)

	resolved, err := store.Resolve(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, desc.Digest, resolved.Digest)

	raw, err := content.FetchAll(ctx, store, desc)
	require.NoError(t, err)

	var m ociv1.Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, ArtifactType, m.ArtifactType)
	assert.Equal(t, "1.2.3", m.Annotations[ociv1.AnnotationVersion])
	assert.Equal(t, "2025-01-01T00:00:00Z", m.Annotations[ociv1.AnnotationCreated])
	require.Len(t, m.Layers, 1)
	assert.Equal(t, LayerMediaType, m.Layers[0].MediaType)
	assert.Equal(t, LayerTitle, m.Layers[0].Annotations[ociv1.AnnotationTitle])
	assert.Equal(t, int64(len(bundle)), m.Layers[0].Size)
}

func TestPack_IsReproducibleWithFixedCreated(t *testing.T) {
	ctx := context.Background()
	ann := map[string]string{ociv1.AnnotationCreated: "2025-01-01T00:00:00Z"}

	a, err := Pack(ctx, memory.New(), []byte("bundle"), "v1", ann)
	require.NoError(t, err)
	b, err := Pack(ctx, memory.New(), []byte("bundle"), "v1", ann)
	require.NoError(t, err)
	assert.Equal(t, a.Digest, b.Digest)
}

func TestPack_RequiresTag(t *testing.T) {
	_, err := Pack(context.Background(), memory.New(), []byte("x"), "", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
}

func TestFetchBundle_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	bundle := []byte{0x1f, 0x8b, 0x08, 0x00, 0x01, 0x02}

	_, err := Pack(ctx, store, bundle, "latest", nil)
	require.NoError(t, err)

	got, err := FetchBundle(ctx, store, "latest")
	require.NoError(t, err)
	assert.Equal(t, bundle, got)

	_, err = FetchBundle(ctx, store, "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestPush_Validation(t *testing.T) {
	tests := []struct {
		name string
		ref  *Reference
	}{
		{name: "nil reference", ref: nil},
		{name: "local path", ref: &Reference{LocalPath: "out.tgz"}},
		{name: "missing tag", ref: &Reference{IsOCI: true, Registry: "ghcr.io", Repository: "acme/overrides"}},
		{name: "bad repository", ref: &Reference{IsOCI: true, Registry: "ghcr.io", Repository: "Bad Repo", Tag: "v1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Push(context.Background(), []byte("x"), PushOptions{Reference: tt.ref})
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
		})
	}
}

func TestStripProtocol(t *testing.T) {
	tests := map[string]string{
		"ghcr.io":                "ghcr.io",
		"https://ghcr.io":        "ghcr.io",
		"http://localhost:5000":  "localhost:5000",
		"https://example.com:80": "example.com:80",
	}
	for in, want := range tests {
		assert.Equal(t, want, stripProtocol(in), in)
	}
}

func TestCreateAuthClient_InsecureTLS(t *testing.T) {
	c := createAuthClient(false, true)
	tr, ok := c.Client.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, tr.TLSClientConfig)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)

	plain := createAuthClient(true, true)
	tr, ok = plain.Client.Transport.(*http.Transport)
	require.True(t, ok)
	if tr.TLSClientConfig != nil {
		assert.False(t, tr.TLSClientConfig.InsecureSkipVerify)
	}
}
