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

package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/urfave/cli/v3"

	apperrors "github.com/gmsdev/dataload/pkg/errors"
	"github.com/gmsdev/dataload/pkg/oci"
	"github.com/gmsdev/dataload/pkg/overrides"
	"github.com/gmsdev/dataload/pkg/serializer"
)

const defaultOCITag = "latest"

// bundleSummary describes a written or pushed overrides bundle.
type bundleSummary struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Files  int    `json:"files" yaml:"files"`
	Size   int    `json:"size" yaml:"size"`
	SHA256 string `json:"sha256" yaml:"sha256"`
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
}

// pushBundle publishes a bundle; replaced in tests.
var pushBundle = oci.Push

func bundleCmd() *cli.Command {
	return &cli.Command{
		Name:                  "bundle",
		EnableShellCompletion: true,
		Usage:                 "Package an override directory without loading it",
		Description: `Builds the gzip-compressed tar that load and reload upload, from the
processing, station-reference/stationdata and user-preferences trees of the
override directory. Hidden files and directories are left out.

The bundle is written to a file, or pushed to an OCI registry when the
output uses the oci:// scheme. Registry credentials come from the Docker
configuration.

Examples:
  dataload bundle --config ./overrides --output overrides.tar.gz
  dataload bundle --config ./overrides --output oci://ghcr.io/acme/overrides:v1`,
		Flags: []cli.Flag{
			configFlag(),
			outputFlag("bundle file path, or oci://registry/repository[:tag]"),
			&cli.StringFlag{
				Name:  "tag",
				Usage: fmt.Sprintf("tag to push when the oci:// output has none (default: %q)", defaultOCITag),
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "talk to the registry over plain HTTP",
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "skip registry TLS certificate verification",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			dir := cmd.String("config")
			if dir == "" {
				return apperrors.New(apperrors.ErrCodeInvalidRequest, "--config is required")
			}
			output := cmd.String("output")
			if output == "" {
				return apperrors.New(apperrors.ErrCodeInvalidRequest, "--output is required")
			}

			ref, err := oci.ParseOutputTarget(output)
			if err != nil {
				return err
			}

			summary, err := buildBundle(ctx, dir, ref, bundleOptions{
				tag:         cmd.String("tag"),
				plainHTTP:   cmd.Bool("plain-http"),
				insecureTLS: cmd.Bool("insecure-tls"),
			})
			if err != nil {
				return err
			}

			return serializer.NewWriter(outFormat, cmd.Root().Writer).Serialize(ctx, summary)
		},
	}
}

type bundleOptions struct {
	tag         string
	plainHTTP   bool
	insecureTLS bool
}

func buildBundle(ctx context.Context, dir string, ref *oci.Reference, opts bundleOptions) (*bundleSummary, error) {
	files := 0
	err := overrides.Walk(dir, func(e overrides.Entry) error {
		if e.Info.Mode().IsRegular() {
			files++
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to read override directory", err)
	}

	data, err := overrides.Package(dir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to package override directory", err)
	}

	sum := sha256.Sum256(data)
	summary := &bundleSummary{
		Source: dir,
		Files:  files,
		Size:   len(data),
		SHA256: hex.EncodeToString(sum[:]),
	}

	if !ref.IsOCI {
		if err := writeBundleFile(ref.LocalPath, data); err != nil {
			return nil, err
		}
		summary.Target = ref.LocalPath
		slog.Info("bundle written", "path", ref.LocalPath, "files", files, "size", len(data))
		return summary, nil
	}

	if ref.Tag == "" {
		tag := opts.tag
		if tag == "" {
			tag = defaultOCITag
		}
		ref = ref.WithTag(tag)
	}

	res, err := pushBundle(ctx, data, oci.PushOptions{
		Reference:   ref,
		PlainHTTP:   opts.plainHTTP,
		InsecureTLS: opts.insecureTLS,
		Annotations: map[string]string{
			ociv1.AnnotationTitle:   "dataload overrides",
			ociv1.AnnotationVersion: version,
		},
	})
	if err != nil {
		return nil, err
	}
	summary.Target = oci.URIScheme + res.Reference
	summary.Digest = res.Digest
	return summary, nil
}

func writeBundleFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create output directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // bundle is not secret
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to write bundle", err)
	}
	return nil
}
