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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"oras.land/oras-go/v2/content/memory"

	"github.com/gmsdev/dataload/pkg/dataload"
	apperrors "github.com/gmsdev/dataload/pkg/errors"
	"github.com/gmsdev/dataload/pkg/loader"
	"github.com/gmsdev/dataload/pkg/oci"
	"github.com/gmsdev/dataload/pkg/overrides"
	"github.com/gmsdev/dataload/pkg/serializer"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.Writer = &out
	root.ErrWriter = io.Discard
	err := root.Run(context.Background(), append([]string{name}, args...))
	return out.String(), err
}

type fakeLoader struct {
	result    loader.Result
	submitted atomic.Int32
	endpoint  atomic.Value
}

func (f *fakeLoader) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(loader.PathAlive, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "alive")
	})
	submit := func(w http.ResponseWriter, r *http.Request) {
		f.submitted.Add(1)
		f.endpoint.Store(r.URL.Path)
		_, _ = io.WriteString(w, "load queued")
	}
	mux.HandleFunc(loader.PathLoad, submit)
	mux.HandleFunc(loader.PathReload, submit)
	mux.HandleFunc(loader.PathResult, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.result)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type staticRegistry bool

func (s staticRegistry) HasLoader(context.Context, string) (bool, error) {
	return bool(s), nil
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		format  string
		want    serializer.Format
		wantErr bool
	}{
		{format: "yaml", want: serializer.FormatYAML},
		{format: "json", want: serializer.FormatJSON},
		{format: "TABLE", want: serializer.FormatTable},
		{format: "xml", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cmd := &cli.Command{
				Flags: []cli.Flag{&cli.StringFlag{Name: "format", Value: tt.format}},
				Action: func(_ context.Context, c *cli.Command) error {
					got, err := parseOutputFormat(c)
					if tt.wantErr {
						assert.Error(t, err)
						return nil
					}
					assert.NoError(t, err)
					assert.Equal(t, tt.want, got)
					return nil
				},
			}
			require.NoError(t, cmd.Run(context.Background(), []string{"test"}))
		})
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantURL      string
		wantInsecure bool
		wantErr      bool
	}{
		{
			name:    "name and host",
			args:    []string{"--name", "demo", "--host", "prod.example.com"},
			wantURL: "https://demo.prod.example.com/config-loader",
		},
		{
			name:         "developer cluster host skips verification",
			args:         []string{"--name", "demo", "--host", dataload.DevClusterHost},
			wantURL:      "https://demo." + dataload.DevClusterHost + "/config-loader",
			wantInsecure: true,
		},
		{
			name:    "explicit url wins",
			args:    []string{"--name", "demo", "--host", "x", "--url", "http://localhost:8080"},
			wantURL: "http://localhost:8080",
		},
		{
			name:         "insecure flag",
			args:         []string{"--url", "https://localhost:8443", "--insecure-tls"},
			wantURL:      "https://localhost:8443",
			wantInsecure: true,
		},
		{name: "missing host", args: []string{"--name", "demo"}, wantErr: true},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KUBECTL_HOST", "")
			t.Setenv("DATALOAD_URL", "")
			t.Setenv("DATALOAD_NAME", "")
			cmd := &cli.Command{
				Flags: targetFlags(),
				Action: func(_ context.Context, c *cli.Command) error {
					got, err := resolveTarget(c)
					if tt.wantErr {
						require.Error(t, err)
						assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
						return nil
					}
					require.NoError(t, err)
					assert.Equal(t, tt.wantURL, got.baseURL)
					assert.Equal(t, tt.wantInsecure, got.insecure)
					return nil
				},
			}
			require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, tt.args...)))
		})
	}
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Awaiting Result", humanize(string(dataload.PhaseAwaitingResult)))
	assert.Equal(t, "Init", humanize(string(dataload.PhaseInit)))
	assert.Equal(t, "Finished", humanize(string(loader.StatusFinished)))
}

func TestLoadCommand_Success(t *testing.T) {
	fl := &fakeLoader{result: loader.Result{Status: loader.StatusFinished, Successful: true, Message: "loaded 3 files"}}
	srv := fl.server(t)

	out, err := runCLI(t, "load", "--url", srv.URL, "--format", "json")
	require.NoError(t, err)

	var got dataload.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Successful)
	assert.Equal(t, "loaded 3 files", got.Message)
	assert.Equal(t, loader.KindInitial, got.Kind)
	assert.Equal(t, int32(1), fl.submitted.Load())
	assert.Equal(t, loader.PathLoad, fl.endpoint.Load())
}

func TestReloadCommand_PullsPublishedBundle(t *testing.T) {
	bundle, err := overrides.Package(writeOverrideTree(t))
	require.NoError(t, err)
	store := memory.New()
	_, err = oci.Pack(context.Background(), store, bundle, "v3", nil)
	require.NoError(t, err)

	orig := pullBundle
	t.Cleanup(func() { pullBundle = orig })
	var pulled oci.PullOptions
	pullBundle = func(ctx context.Context, opts oci.PullOptions) ([]byte, error) {
		pulled = opts
		return oci.FetchBundle(ctx, store, opts.Reference.Tag)
	}

	fl := &fakeLoader{result: loader.Result{Status: loader.StatusFinished, Successful: true, Message: "reloaded"}}
	srv := fl.server(t)

	out, err := runCLI(t, "reload", "--url", srv.URL, "--format", "json",
		"--config", "oci://registry.local:5000/acme/overrides:v3", "--registry-plain-http")
	require.NoError(t, err)

	require.NotNil(t, pulled.Reference)
	assert.Equal(t, "registry.local:5000", pulled.Reference.Registry)
	assert.Equal(t, "acme/overrides", pulled.Reference.Repository)
	assert.Equal(t, "v3", pulled.Reference.Tag)
	assert.True(t, pulled.PlainHTTP)
	assert.False(t, pulled.InsecureTLS)

	var got dataload.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, len(bundle), got.BundleSize)
	assert.Equal(t, loader.PathReload, fl.endpoint.Load())
}

func TestLoadCommand_MissingPublishedBundle(t *testing.T) {
	store := memory.New()
	orig := pullBundle
	t.Cleanup(func() { pullBundle = orig })
	pullBundle = func(ctx context.Context, opts oci.PullOptions) ([]byte, error) {
		assert.Equal(t, defaultOCITag, opts.Reference.Tag)
		return oci.FetchBundle(ctx, store, opts.Reference.Tag)
	}

	fl := &fakeLoader{result: loader.Result{Status: loader.StatusFinished, Successful: true}}
	srv := fl.server(t)

	_, err := runCLI(t, "load", "--url", srv.URL, "--config", "oci://ghcr.io/acme/overrides")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
	assert.Zero(t, fl.submitted.Load())
}

func TestReloadCommand_UsesReloadEndpoint(t *testing.T) {
	fl := &fakeLoader{result: loader.Result{Status: loader.StatusFinished, Successful: true}}
	srv := fl.server(t)

	_, err := runCLI(t, "reload", "--url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, loader.PathReload, fl.endpoint.Load())
}

func TestLoadCommand_FailedJob(t *testing.T) {
	fl := &fakeLoader{result: loader.Result{Status: loader.StatusFinished, Message: "bad station file"}}
	srv := fl.server(t)

	_, err := runCLI(t, "load", "--url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad station file")
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.CodeOf(err))
}

func TestLoadCommand_InvalidTimeout(t *testing.T) {
	_, err := runCLI(t, "load", "--url", "http://127.0.0.1:1", "--timeout", "0")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
}

func TestLoadCommand_PreflightSkip(t *testing.T) {
	orig := newRegistry
	t.Cleanup(func() { newRegistry = orig })
	newRegistry = func(string) (dataload.ServiceRegistry, error) {
		return staticRegistry(false), nil
	}

	out, err := runCLI(t, "load", "--name", "demo", "--host", "unreachable.invalid", "--format", "json")
	require.NoError(t, err)

	var got dataload.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Skipped)
	assert.Equal(t, "demo", got.Instance)
}

func TestResultCommand(t *testing.T) {
	fl := &fakeLoader{result: loader.Result{Status: loader.StatusFinished, Successful: false, Message: "boom"}}
	srv := fl.server(t)

	out, err := runCLI(t, "result", "--url", srv.URL, "--format", "json")
	require.NoError(t, err)

	var got resultView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "FINISHED", got.Status)
	assert.Equal(t, "boom", got.Result)
	assert.Equal(t, "Finished, failed", got.Summary)
	assert.Equal(t, srv.URL, got.URL)
}

func TestResultCommand_OutputFile(t *testing.T) {
	fl := &fakeLoader{result: loader.Result{Status: loader.StatusFinished, Successful: true, Message: "loaded"}}
	srv := fl.server(t)
	path := filepath.Join(t.TempDir(), "reports", "result.yaml")

	out, err := runCLI(t, "result", "--url", srv.URL, "--output", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "status: FINISHED")
}

func TestResultCommand_OutputIsDirectory(t *testing.T) {
	fl := &fakeLoader{result: loader.Result{Status: loader.StatusFinished, Successful: true}}
	srv := fl.server(t)

	_, err := runCLI(t, "result", "--url", srv.URL, "--output", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
}

func TestResultCommand_NothingSubmitted(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := runCLI(t, "result", "--url", srv.URL)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func writeOverrideTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"processing/pipeline.yaml":                   "steps: []\n",
		"station-reference/stationdata/stations.csv": "id,name\n1,alpha\n",
		"user-preferences/.secret":                   "hidden",
		"user-preferences/defaults.json":             "{}",
		"unrelated/ignored.txt":                      "ignored",
	}
	for rel, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return dir
}

func TestBundleCommand_File(t *testing.T) {
	dir := writeOverrideTree(t)
	target := filepath.Join(t.TempDir(), "out", "overrides.tar.gz")

	out, err := runCLI(t, "bundle", "--config", dir, "--output", target, "--format", "json")
	require.NoError(t, err)

	var got bundleSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Files)
	assert.Equal(t, target, got.Target)
	assert.Len(t, got.SHA256, 64)

	f, err := os.Open(target)
	require.NoError(t, err)
	defer f.Close()

	n, err := overrides.Extract(f, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBundleCommand_OCIDefaultsTag(t *testing.T) {
	orig := pushBundle
	t.Cleanup(func() { pushBundle = orig })

	var pushed *oci.Reference
	pushBundle = func(_ context.Context, bundle []byte, opts oci.PushOptions) (*oci.PushResult, error) {
		pushed = opts.Reference
		return &oci.PushResult{Digest: "sha256:abc", Reference: opts.Reference.ImageReference(), Size: int64(len(bundle))}, nil
	}

	out, err := runCLI(t, "bundle", "--config", writeOverrideTree(t), "--output", "oci://ghcr.io/acme/overrides", "--format", "json")
	require.NoError(t, err)
	require.NotNil(t, pushed)
	assert.Equal(t, defaultOCITag, pushed.Tag)

	var got bundleSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "oci://ghcr.io/acme/overrides:latest", got.Target)
	assert.Equal(t, "sha256:abc", got.Digest)
}

func TestBundleCommand_RequiresFlags(t *testing.T) {
	_, err := runCLI(t, "bundle", "--output", "x.tgz")
	require.Error(t, err)

	_, err = runCLI(t, "bundle", "--config", t.TempDir())
	require.Error(t, err)

	_, err = runCLI(t, "bundle", "--config", filepath.Join(t.TempDir(), "missing"), "--output", "x.tgz")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
}
