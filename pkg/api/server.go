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

package api

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gmsdev/dataload/pkg/loader"
	"github.com/gmsdev/dataload/pkg/logging"
	"github.com/gmsdev/dataload/pkg/server"
)

const (
	name           = "config-loader"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/gmsdev/dataload/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Serve runs the config-loader service until SIGINT or SIGTERM.
func Serve() error {
	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	cfg, err := loader.ConfigFromEnv()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, &loader.CommandLoader{Command: cfg.Command})
}

// run wires the loader into the HTTP server and blocks until ctx is done or
// either side fails. serverOpts are applied before the application routes.
func run(ctx context.Context, cfg *loader.Config, l loader.Loader, serverOpts ...server.Option) error {
	states := loader.NewStateMachine()
	results := loader.NewResultStore()
	executor := loader.NewExecutor(l, states, results,
		loader.WithWorkDir(cfg.WorkDir),
		loader.WithJobTimeout(cfg.JobTimeout),
	)
	handler := loader.NewHandler(states, results, executor,
		loader.WithMaxBundleBytes(cfg.MaxBundleBytes),
	)

	opts := append([]server.Option{}, serverOpts...)
	opts = append(opts,
		server.WithName(name),
		server.WithVersion(version),
		server.WithMinReadTimeout(cfg.UploadTimeout()),
		server.WithHandler(handler.Routes()),
	)
	srv := server.New(opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return executor.Run(gctx)
	})
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}
	slog.Info("stopped")
	return nil
}
