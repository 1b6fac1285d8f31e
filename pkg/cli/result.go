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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/gmsdev/dataload/pkg/loader"
)

// resultView is what the result command prints.
type resultView struct {
	URL        string `json:"url" yaml:"url"`
	Status     string `json:"status" yaml:"status"`
	Successful bool   `json:"successful" yaml:"successful"`
	Result     string `json:"result" yaml:"result"`
	Summary    string `json:"summary" yaml:"summary"`
}

func newResultView(url string, r loader.Result) resultView {
	summary := humanize(string(r.Status))
	if r.Finished() {
		if r.Successful {
			summary += ", successful"
		} else {
			summary += ", failed"
		}
	}
	return resultView{
		URL:        url,
		Status:     string(r.Status),
		Successful: r.Successful,
		Result:     r.Message,
		Summary:    summary,
	}
}

func resultCmd() *cli.Command {
	flags := append(targetFlags(),
		&cli.BoolFlag{
			Name:  "wait",
			Usage: "poll until the current job finishes (bounded by --timeout)",
		},
		outputFlag("file to write the result to (default: stdout)"),
		formatFlag(),
	)
	return &cli.Command{
		Name:                  "result",
		EnableShellCompletion: true,
		Usage:                 "Show the result of the latest load or reload",
		Description: `Queries the config-loader for the latest job result. With --wait the
command polls until the job finishes.

Examples:
  dataload result --name demo --host dev.example.com
  dataload result --url http://localhost:8080 --wait --format json`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			t, err := resolveTarget(cmd)
			if err != nil {
				return err
			}

			client, err := newClient(cmd, t, false)
			if err != nil {
				return err
			}

			var res loader.Result
			if cmd.Bool("wait") {
				res, err = client.WaitResult(ctx)
			} else {
				res, err = client.Result(ctx)
			}
			if err != nil {
				return err
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
			return w.Serialize(ctx, newResultView(client.BaseURL(), res))
		},
	}
}
