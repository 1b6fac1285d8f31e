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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/gmsdev/dataload/pkg/dataload"
	apperrors "github.com/gmsdev/dataload/pkg/errors"
	k8sclient "github.com/gmsdev/dataload/pkg/k8s/client"
	"github.com/gmsdev/dataload/pkg/loader"
	"github.com/gmsdev/dataload/pkg/oci"
)

// newRegistry builds the preflight service registry; replaced in tests.
var newRegistry = func(kubeconfig string) (dataload.ServiceRegistry, error) {
	cs, _, err := k8sclient.BuildKubeClient(kubeconfig)
	if err != nil {
		return nil, err
	}
	return k8sclient.NewServiceRegistry(cs), nil
}

func loadCmd() *cli.Command {
	return newLoadCmd(loader.KindInitial, "load", "Perform the initial configuration load",
		`Packages the override directory (or pulls the oci:// bundle) if given, waits for the config-loader
to come up, submits the initial load and waits for it to finish.

Instances without a config-loader service are skipped successfully.

Examples:
  dataload load --name demo --host dev.example.com --config ./overrides
  dataload load --name demo --host dev.example.com --config oci://ghcr.io/acme/overrides:v3
  dataload load --url https://localhost:8443/config-loader --insecure-tls`)
}

func reloadCmd() *cli.Command {
	return newLoadCmd(loader.KindReload, "reload", "Reload configuration into a loaded instance",
		`Same flow as load, but asks the config-loader to reload. The config-loader
rejects a reload when no initial load was ever performed.`)
}

func newLoadCmd(kind loader.Kind, cmdName, usage, description string) *cli.Command {
	flags := append(targetFlags(), sourceFlags()...)
	flags = append(flags, outputFlag("file to write the outcome to (default: stdout)"), formatFlag())
	return &cli.Command{
		Name:                  cmdName,
		EnableShellCompletion: true,
		Usage:                 usage,
		Description:           description,
		Flags:                 flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runLoad(ctx, cmd, kind)
		},
	}
}

// pullBundle fetches a published bundle; replaced in tests.
var pullBundle = oci.Pull

// newRequest maps --config onto the request: an oci:// reference is pulled
// during packaging, anything else is an override directory.
func newRequest(cmd *cli.Command, t *target, kind loader.Kind) (dataload.Request, error) {
	req := dataload.Request{Instance: t.instance, Kind: kind}

	src := strings.TrimSpace(cmd.String("config"))
	if !strings.HasPrefix(src, oci.URIScheme) {
		req.OverridesDir = src
		return req, nil
	}

	ref, err := oci.ParseOutputTarget(src)
	if err != nil {
		return req, err
	}
	if ref.Tag == "" {
		ref = ref.WithTag(defaultOCITag)
	}
	opts := oci.PullOptions{
		Reference:   ref,
		PlainHTTP:   cmd.Bool("registry-plain-http"),
		InsecureTLS: cmd.Bool("registry-insecure-tls"),
	}
	req.Fetch = func(ctx context.Context) ([]byte, error) {
		return pullBundle(ctx, opts)
	}
	return req, nil
}

func runLoad(ctx context.Context, cmd *cli.Command, kind loader.Kind) error {
	outFormat, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}

	t, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	client, err := newClient(cmd, t, true)
	if err != nil {
		return err
	}

	req, err := newRequest(cmd, t, kind)
	if err != nil {
		return err
	}

	out, err := client.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", cmd.Name, err)
	}

	if out.Skipped {
		slog.Info("instance has no config-loader, nothing to load", "instance", t.instance)
	}

	w, err := newResultWriter(cmd, outFormat)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			slog.Warn("failed to close output", "error", cerr)
		}
	}()
	return w.Serialize(ctx, out)
}

func newClient(cmd *cli.Command, t *target, preflight bool) (*dataload.Client, error) {
	minutes := cmd.Int("timeout")
	if minutes <= 0 {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidRequest,
			"--timeout must be a positive number of minutes, got %d", minutes)
	}

	opts := []dataload.Option{
		dataload.WithHTTPClient(dataload.NewHTTPClient(dataload.WithInsecureSkipVerify(t.insecure))),
		dataload.WithTimeout(time.Duration(minutes) * time.Minute),
		dataload.WithPhaseHook(func(p dataload.Phase) {
			slog.Info("dataload", "instance", t.instance, "step", humanize(string(p)))
		}),
	}

	if preflight && t.instance != "" && !cmd.Bool("skip-preflight") {
		reg, err := newRegistry(cmd.String("kubeconfig"))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeUnavailable,
				"failed to create kubernetes client for the preflight check (use --skip-preflight to bypass)", err)
		}
		opts = append(opts, dataload.WithRegistry(reg))
	}

	return dataload.New(t.baseURL, opts...)
}
