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
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/gmsdev/dataload/pkg/defaults"
	apperrors "github.com/gmsdev/dataload/pkg/errors"
)

const (
	// ArtifactType identifies a published overrides bundle.
	ArtifactType = "application/vnd.gms.dataload.overrides"

	// LayerMediaType is the media type of the single bundle layer.
	LayerMediaType = "application/vnd.gms.dataload.overrides.v1.tar+gzip"

	// LayerTitle is the file name recorded on the bundle layer.
	LayerTitle = "overrides.tar.gz"
)

// PushOptions configures a bundle push.
type PushOptions struct {
	// Reference is the destination; it must be an OCI reference with a tag.
	Reference *Reference
	// PlainHTTP talks to the registry without TLS.
	PlainHTTP bool
	// InsecureTLS skips registry certificate verification.
	InsecureTLS bool
	// Annotations are added to the manifest.
	Annotations map[string]string
}

// PushResult describes a pushed bundle.
type PushResult struct {
	Digest    string `json:"digest" yaml:"digest"`
	Reference string `json:"reference" yaml:"reference"`
	Size      int64  `json:"size" yaml:"size"`
}

// Pack stores bundle as a single-layer artifact in target and tags the
// manifest. The returned descriptor is the manifest's.
func Pack(ctx context.Context, target oras.Target, bundle []byte, tag string, annotations map[string]string) (ociv1.Descriptor, error) {
	if tag == "" {
		return ociv1.Descriptor{}, apperrors.New(apperrors.ErrCodeInvalidRequest, "tag is required")
	}

	layer, err := oras.PushBytes(ctx, target, LayerMediaType, bundle)
	if err != nil {
		return ociv1.Descriptor{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to store bundle layer", err)
	}
	layer.Annotations = map[string]string{ociv1.AnnotationTitle: LayerTitle}

	manifestAnnotations := make(map[string]string, len(annotations)+1)
	for k, v := range annotations {
		manifestAnnotations[k] = v
	}
	if _, ok := manifestAnnotations[ociv1.AnnotationCreated]; !ok {
		manifestAnnotations[ociv1.AnnotationCreated] = time.Now().UTC().Format(time.RFC3339)
	}

	manifest, err := oras.PackManifest(ctx, target, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              []ociv1.Descriptor{layer},
		ManifestAnnotations: manifestAnnotations,
	})
	if err != nil {
		return ociv1.Descriptor{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to pack manifest", err)
	}

	if err := target.Tag(ctx, manifest, tag); err != nil {
		return ociv1.Descriptor{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to tag manifest", err)
	}
	return manifest, nil
}

// Push publishes bundle to the registry named by opts.Reference.
func Push(ctx context.Context, bundle []byte, opts PushOptions) (*PushResult, error) {
	ref := opts.Reference
	if ref == nil || !ref.IsOCI {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "an oci:// reference is required")
	}
	if ref.Tag == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "tag is required for OCI push")
	}
	if err := ValidateRegistryReference(ref.Registry, ref.Repository); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaults.OCIPushTimeout)
	defer cancel()

	store := memory.New()
	manifest, err := Pack(ctx, store, bundle, ref.Tag, opts.Annotations)
	if err != nil {
		return nil, err
	}

	repo, err := newRepository(ref, opts.PlainHTTP, opts.InsecureTLS)
	if err != nil {
		return nil, err
	}

	slog.Info("pushing overrides bundle",
		"reference", ref.ImageReference(),
		"size", len(bundle),
	)

	desc, err := oras.Copy(ctx, store, ref.Tag, repo, ref.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeUnavailable, "failed to push bundle to registry", err,
			map[string]any{"reference": ref.ImageReference()})
	}
	if desc.Digest != manifest.Digest {
		slog.Warn("pushed manifest digest differs from packed manifest",
			"packed", manifest.Digest.String(), "pushed", desc.Digest.String())
	}

	slog.Info("overrides bundle pushed",
		"reference", ref.ImageReference(),
		"digest", desc.Digest.String(),
	)

	return &PushResult{
		Digest:    desc.Digest.String(),
		Reference: ref.ImageReference(),
		Size:      int64(len(bundle)),
	}, nil
}

// FetchBundle reads back the bundle layer of the manifest tagged tag in src.
func FetchBundle(ctx context.Context, src oras.ReadOnlyTarget, tag string) ([]byte, error) {
	manifestDesc, err := src.Resolve(ctx, tag)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNotFound, "failed to resolve bundle tag", err)
	}

	raw, err := content.FetchAll(ctx, src, manifestDesc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch manifest", err)
	}
	manifest, err := decodeManifest(raw)
	if err != nil {
		return nil, err
	}
	if manifest.ArtifactType != ArtifactType {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest, "not an overrides bundle",
			map[string]any{"artifactType": manifest.ArtifactType})
	}
	for _, l := range manifest.Layers {
		if l.MediaType == LayerMediaType {
			data, err := content.FetchAll(ctx, src, l)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch bundle layer", err)
			}
			return data, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "manifest has no bundle layer")
}

func newRepository(ref *Reference, plainHTTP, insecureTLS bool) (*remote.Repository, error) {
	repo, err := remote.NewRepository(stripProtocol(ref.Registry) + "/" + ref.Repository)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to initialize repository", err)
	}
	repo.PlainHTTP = plainHTTP
	repo.Client = createAuthClient(plainHTTP, insecureTLS)
	return repo, nil
}

// stripProtocol removes an http:// or https:// prefix from a registry host.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	return strings.TrimPrefix(registry, "http://")
}

// createAuthClient builds a registry client that reads Docker credentials
// and optionally skips certificate verification.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		slog.Debug("docker credential store unavailable", "error", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // opt-in via --insecure-tls
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}

func decodeManifest(raw []byte) (*ociv1.Manifest, error) {
	var m ociv1.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to decode manifest", err)
	}
	if m.MediaType != "" && m.MediaType != ociv1.MediaTypeImageManifest {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest, "unsupported manifest media type",
			map[string]any{"mediaType": m.MediaType})
	}
	return &m, nil
}
