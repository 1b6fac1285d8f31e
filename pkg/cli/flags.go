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
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gmsdev/dataload/pkg/dataload"
	"github.com/gmsdev/dataload/pkg/defaults"
	apperrors "github.com/gmsdev/dataload/pkg/errors"
	"github.com/gmsdev/dataload/pkg/serializer"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("output format (supported values: %s)", strings.Join(serializer.SupportedFormats(), ", ")),
	}
}

func outputFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   usage,
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:      "config",
		Aliases:   []string{"c"},
		Usage:     "override directory to package and upload",
		Sources:   cli.EnvVars("DATALOAD_CONFIG"),
		TakesFile: true,
	}
}

// sourceFlags name the overrides of a load or reload: a directory, or a
// bundle published with "dataload bundle --output oci://...".
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      "config",
			Aliases:   []string{"c"},
			Usage:     "override directory to package and upload, or oci://registry/repository[:tag] of a published bundle",
			Sources:   cli.EnvVars("DATALOAD_CONFIG"),
			TakesFile: true,
		},
		&cli.BoolFlag{
			Name:  "registry-plain-http",
			Usage: "pull an oci:// bundle over plain HTTP",
		},
		&cli.BoolFlag{
			Name:  "registry-insecure-tls",
			Usage: "skip registry TLS certificate verification when pulling an oci:// bundle",
		},
	}
}

// targetFlags locate the config-loader and tune the client.
func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "instance name; the config-loader is reached at https://<name>.<host>/config-loader",
			Sources: cli.EnvVars("DATALOAD_NAME"),
		},
		&cli.StringFlag{
			Name:    "host",
			Usage:   "cluster ingress host",
			Sources: cli.EnvVars("KUBECTL_HOST"),
		},
		&cli.StringFlag{
			Name:    "url",
			Usage:   "explicit config-loader base URL, overrides --name and --host",
			Sources: cli.EnvVars("DATALOAD_URL"),
		},
		&cli.IntFlag{
			Name:    "timeout",
			Value:   int(defaults.DataloadTimeout.Minutes()),
			Usage:   "minutes to wait for the config-loader to come up, and again for the result",
			Sources: cli.EnvVars("DATALOAD_TIMEOUT"),
		},
		&cli.BoolFlag{
			Name:    "insecure-tls",
			Usage:   "skip TLS certificate verification",
			Sources: cli.EnvVars("DATALOAD_INSECURE_TLS"),
		},
		&cli.StringFlag{
			Name:      "kubeconfig",
			Usage:     "kubeconfig used for the config-loader preflight check",
			Sources:   cli.EnvVars("KUBECONFIG"),
			TakesFile: true,
		},
		&cli.BoolFlag{
			Name:    "skip-preflight",
			Usage:   "do not check the cluster for a config-loader service before loading",
			Sources: cli.EnvVars("DATALOAD_SKIP_PREFLIGHT"),
		},
	}
}

func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(strings.ToLower(cmd.String("format")))
	if f.IsUnknown() {
		return "", apperrors.Newf(apperrors.ErrCodeInvalidRequest,
			"unknown output format: %q", cmd.String("format"))
	}
	return f, nil
}

// target is where and how the CLI talks to a config-loader.
type target struct {
	instance string
	baseURL  string
	insecure bool
}

func resolveTarget(cmd *cli.Command) (*target, error) {
	t := &target{
		instance: strings.TrimSpace(cmd.String("name")),
		insecure: cmd.Bool("insecure-tls"),
	}

	if u := strings.TrimSpace(cmd.String("url")); u != "" {
		t.baseURL = u
		return t, nil
	}

	host := strings.TrimSpace(cmd.String("host"))
	if t.instance == "" || host == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			"either --url or both --name and --host (KUBECTL_HOST) are required")
	}
	t.baseURL = dataload.InstanceURL(t.instance, host)
	t.insecure = t.insecure || dataload.InsecureHost(host)
	return t, nil
}

// humanize renders an upper snake case token such as AWAITING_RESULT as
// "Awaiting Result".
func humanize(token string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(token), "_", " "))
}

// newResultWriter writes to --output when set, otherwise to the root
// command's writer.
func newResultWriter(cmd *cli.Command, format serializer.Format) (*serializer.Writer, error) {
	if path := strings.TrimSpace(cmd.String("output")); path != "" {
		w, err := serializer.NewFileWriter(format, path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid --output", err)
		}
		return w, nil
	}
	return serializer.NewWriter(format, cmd.Root().Writer), nil
}
