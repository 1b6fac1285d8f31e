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

package dataload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"

	"github.com/gmsdev/dataload/pkg/defaults"
	apperrors "github.com/gmsdev/dataload/pkg/errors"
	"github.com/gmsdev/dataload/pkg/loader"
	"github.com/gmsdev/dataload/pkg/overrides"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// ServiceRegistry tells whether an instance runs a config-loader at all.
type ServiceRegistry interface {
	HasLoader(ctx context.Context, instance string) (bool, error)
}

// Request describes one load or reload attempt.
type Request struct {
	// Instance is the deployed instance; used for the preflight check.
	Instance string
	Kind     loader.Kind
	// OverridesDir is packaged and uploaded when set.
	OverridesDir string
	// Fetch, when set, supplies a ready bundle instead of OverridesDir,
	// e.g. one published to a registry.
	Fetch func(ctx context.Context) ([]byte, error)
}

// Outcome is the result of a successful Run.
type Outcome struct {
	Instance string      `json:"instance" yaml:"instance"`
	Kind     loader.Kind `json:"kind" yaml:"kind"`
	// Skipped means the instance has no config-loader and nothing was sent.
	Skipped    bool   `json:"skipped" yaml:"skipped"`
	Successful bool   `json:"successful" yaml:"successful"`
	Message    string `json:"message" yaml:"message"`
	// Submission is the server's answer to the load or reload request.
	Submission string        `json:"submission,omitempty" yaml:"submission,omitempty"`
	BundleSize int           `json:"bundleSize" yaml:"bundleSize"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Client drives the dataload protocol against one config-loader.
type Client struct {
	baseURL  string
	http     *http.Client
	probe    *http.Client
	registry ServiceRegistry
	clock    clock.PassiveClock

	timeout      time.Duration
	pollInterval time.Duration
	aliveNotice  time.Duration
	resultNotice time.Duration

	onPhase func(Phase)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Liveness probes and one-shot
// result queries use the same client without its retry transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRegistry enables the config-loader preflight check.
func WithRegistry(r ServiceRegistry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithTimeout bounds the liveness wait and the result wait, each.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPollInterval sets the tick of both wait loops.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithNoticeIntervals sets how often the wait loops log progress.
func WithNoticeIntervals(alive, result time.Duration) Option {
	return func(c *Client) {
		if alive > 0 {
			c.aliveNotice = alive
		}
		if result > 0 {
			c.resultNotice = result
		}
	}
}

// WithPhaseHook registers a callback invoked on every phase change.
func WithPhaseHook(fn func(Phase)) Option {
	return func(c *Client) {
		c.onPhase = fn
	}
}

// WithClock replaces the clock used for progress notices and durations.
func WithClock(clk clock.PassiveClock) Option {
	return func(c *Client) {
		c.clock = clk
	}
}

// New creates a client for the config-loader at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidRequest,
			"invalid config-loader URL %q", baseURL)
	}

	c := &Client{
		baseURL:      strings.TrimRight(u.String(), "/"),
		clock:        clock.RealClock{},
		timeout:      defaults.DataloadTimeout,
		pollInterval: defaults.DataloadPollInterval,
		aliveNotice:  defaults.DataloadAliveNotice,
		resultNotice: defaults.DataloadResultNotice,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient()
	}
	c.probe = withoutRetry(c.http)
	return c, nil
}

// BaseURL returns the config-loader base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) enter(p Phase) {
	slog.Debug("dataload phase", "phase", p)
	if c.onPhase != nil {
		c.onPhase(p)
	}
}

// Run performs one complete load or reload: preflight, packaging, liveness
// wait, submission and result wait. A nil error means the job finished
// successfully or the instance has no config-loader (Outcome.Skipped).
func (c *Client) Run(ctx context.Context, req Request) (out *Outcome, err error) {
	start := c.clock.Now()
	if req.Kind == "" {
		req.Kind = loader.KindInitial
	}

	c.enter(PhaseInit)
	defer func() {
		if err != nil {
			c.enter(PhaseFailure)
			return
		}
		out.Duration = c.clock.Since(start)
		c.enter(PhaseSuccess)
	}()

	if c.registry != nil {
		ok, err := c.registry.HasLoader(ctx, req.Instance)
		if err != nil {
			return nil, err
		}
		if !ok {
			slog.Info("config-loader service not found, skipping dataload", "instance", req.Instance)
			return &Outcome{Instance: req.Instance, Kind: req.Kind, Skipped: true, Successful: true,
				Message: "no config-loader service"}, nil
		}
	}

	c.enter(PhasePackaging)
	var bundle []byte
	switch {
	case req.Fetch != nil:
		bundle, err = req.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		slog.Info("fetched overrides bundle", "bytes", len(bundle))
	case req.OverridesDir != "":
		bundle, err = overrides.Package(req.OverridesDir)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to package overrides", err)
		}
		slog.Info("packaged overrides", "dir", req.OverridesDir, "bytes", len(bundle))
	}

	c.enter(PhaseAwaitingLive)
	if err := c.WaitAlive(ctx); err != nil {
		return nil, err
	}

	c.enter(PhaseSubmitting)
	answer, err := c.Submit(ctx, req.Kind, bundle)
	if err != nil {
		return nil, err
	}

	c.enter(PhaseAwaitingResult)
	res, err := c.WaitResult(ctx)
	if err != nil {
		return nil, err
	}
	if !res.Successful {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInternal,
			"dataload failed: "+res.Message, map[string]any{"result": res.Message})
	}

	slog.Info("dataload finished", "instance", req.Instance, "kind", req.Kind, "result", res.Message)
	return &Outcome{
		Instance:   req.Instance,
		Kind:       req.Kind,
		Successful: true,
		Message:    res.Message,
		Submission: answer,
		BundleSize: len(bundle),
	}, nil
}

// Alive probes the liveness endpoint once. Any failure counts as not alive.
func (c *Client) Alive(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(loader.PathAlive), nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.probe.Do(req)
	if err != nil {
		slog.Debug("liveness probe failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode == http.StatusOK
}

// WaitAlive polls the liveness endpoint until it answers or the timeout
// passes. Timing out is not an error: the submission decides the outcome.
// Only cancellation of ctx is returned.
func (c *Client) WaitAlive(ctx context.Context) error {
	slog.Info("waiting for config-loader to become alive", "url", c.baseURL, "timeout", c.timeout.String())
	start := c.clock.Now()
	lastNotice := start

	err := wait.PollUntilContextTimeout(ctx, c.pollInterval, c.timeout, true, func(ctx context.Context) (bool, error) {
		if c.Alive(ctx) {
			return true, nil
		}
		if now := c.clock.Now(); now.Sub(lastNotice) >= c.aliveNotice {
			lastNotice = now
			slog.Info("still waiting for config-loader", "elapsed", now.Sub(start).Round(time.Second).String())
		}
		return false, nil
	})
	if err == nil {
		slog.Info("config-loader is alive")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	slog.Warn("timed out waiting for config-loader to become alive, submitting anyway",
		"timeout", c.timeout.String())
	return nil
}

// Submit posts a load or reload with an optional bundle and returns the
// server's answer. Any status but 200 is a CONFLICT error carrying the
// status and body.
func (c *Client) Submit(ctx context.Context, kind loader.Kind, bundle []byte) (string, error) {
	body, contentType, err := multipartBody(bundle)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to encode submission", err)
	}

	endpoint := kind.Endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/"+endpoint), bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create submission", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", UserAgent)

	slog.Info("submitting dataload", "endpoint", endpoint, "bundleBytes", len(bundle))
	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeUnavailable, "failed to submit "+endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeUnavailable, "failed to read submission response", err)
	}
	answer := strings.TrimSpace(string(data))

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewWithContext(apperrors.ErrCodeConflict,
			fmt.Sprintf("%s rejected with status %d: %s", endpoint, resp.StatusCode, answer),
			map[string]any{"status": resp.StatusCode, "body": answer})
	}

	slog.Info("submission accepted", "endpoint", endpoint, "response", answer)
	return answer, nil
}

// Result fetches the latest job result once, without retries.
func (c *Client) Result(ctx context.Context) (loader.Result, error) {
	return c.fetchResult(ctx, c.probe)
}

// WaitResult polls the result endpoint until the job finishes. Exceeding
// the timeout is a TIMEOUT error; a request that exhausted its retries is
// UNAVAILABLE.
func (c *Client) WaitResult(ctx context.Context) (loader.Result, error) {
	slog.Info("waiting for dataload result", "timeout", c.timeout.String())
	start := c.clock.Now()
	lastNotice := start

	var res loader.Result
	err := wait.PollUntilContextTimeout(ctx, c.pollInterval, c.timeout, true, func(ctx context.Context) (bool, error) {
		r, err := c.fetchResult(ctx, c.http)
		if err != nil {
			if apperrors.HasCode(err, apperrors.ErrCodeUnavailable) {
				return false, err
			}
			// Status answers other than 200 are transient (rate limiting,
			// ingress hiccups); keep polling until the deadline.
			slog.Debug("result not available", "error", err)
			return false, nil
		}
		res = r
		if r.Finished() {
			return true, nil
		}
		if now := c.clock.Now(); now.Sub(lastNotice) >= c.resultNotice {
			lastNotice = now
			slog.Info("dataload still running", "elapsed", now.Sub(start).Round(time.Second).String())
		}
		return false, nil
	})

	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, ctx.Err()
	case wait.Interrupted(err) || errors.Is(err, context.DeadlineExceeded):
		return res, apperrors.NewWithContext(apperrors.ErrCodeTimeout,
			fmt.Sprintf("dataload did not finish within %s", c.timeout),
			map[string]any{"lastStatus": string(res.Status)})
	default:
		return res, err
	}
}

func (c *Client) fetchResult(ctx context.Context, hc *http.Client) (loader.Result, error) {
	var res loader.Result

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(loader.PathResult), nil)
	if err != nil {
		return res, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create result request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, apperrors.Wrap(apperrors.ErrCodeUnavailable, "failed to fetch result", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return res, apperrors.Wrap(apperrors.ErrCodeUnavailable, "failed to read result", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return res, apperrors.New(apperrors.ErrCodeNotFound, "no dataload has been submitted")
	default:
		return res, apperrors.NewWithContext(apperrors.ErrCodeInternal,
			fmt.Sprintf("unexpected result status %d", resp.StatusCode),
			map[string]any{"status": resp.StatusCode, "body": strings.TrimSpace(string(data))})
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return res, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to decode result", err)
	}
	return res, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

func multipartBody(bundle []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if len(bundle) > 0 {
		fw, err := mw.CreateFormFile(loader.BundleField, "overrides.tar.gz")
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(bundle); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
