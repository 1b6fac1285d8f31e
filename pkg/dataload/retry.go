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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gmsdev/dataload/pkg/defaults"
)

// RetryTransport retries requests on connection failures and on a set of
// "not there yet" status codes, with exponential backoff. Request bodies are
// replayed through Request.GetBody; a request with a body but no GetBody is
// sent once.
type RetryTransport struct {
	// Base performs the individual attempts. nil means http.DefaultTransport.
	Base http.RoundTripper

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialInterval is the first delay; each further delay doubles up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Methods lists the methods that are retried.
	Methods []string
	// Statuses lists response codes treated as retryable failures.
	Statuses []int
}

// NewRetryTransport wraps base with the default retry policy: GET and POST,
// 20 retries, 200ms doubling to at most 2m, retrying on 404.
func NewRetryTransport(base http.RoundTripper) *RetryTransport {
	return &RetryTransport{
		Base:            base,
		MaxRetries:      defaults.RetryMaxAttempts,
		InitialInterval: defaults.RetryInitialInterval,
		MaxInterval:     defaults.RetryMaxInterval,
		Methods:         []string{http.MethodGet, http.MethodPost},
		Statuses:        []int{http.StatusNotFound},
	}
}

// RetryStatusError reports a response whose status was retryable.
type RetryStatusError struct {
	StatusCode int
	Status     string
}

func (e *RetryStatusError) Error() string {
	return "retryable response status: " + e.Status
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryTransport) newBackOff(req *http.Request) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = t.InitialInterval
	exp.MaxInterval = t.MaxInterval
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	retries := t.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), req.Context())
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !slices.Contains(t.Methods, req.Method) {
		return t.base().RoundTrip(req)
	}
	hasBody := req.Body != nil && req.Body != http.NoBody
	if hasBody && req.GetBody == nil {
		return t.base().RoundTrip(req)
	}

	var (
		resp    *http.Response
		attempt int
	)
	op := func() error {
		attempt++
		r := req
		if attempt > 1 && hasBody {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("failed to rewind request body: %w", err))
			}
			r = req.Clone(req.Context())
			r.Body = body
		}

		res, err := t.base().RoundTrip(r)
		if err != nil {
			if req.Context().Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		if slices.Contains(t.Statuses, res.StatusCode) {
			_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
			res.Body.Close()
			return &RetryStatusError{StatusCode: res.StatusCode, Status: res.Status}
		}

		resp = res
		return nil
	}

	notify := func(err error, next time.Duration) {
		slog.Debug("retrying request",
			"method", req.Method,
			"url", req.URL.Redacted(),
			"attempt", attempt,
			"next", next.String(),
			"error", err)
	}

	if err := backoff.RetryNotify(op, t.newBackOff(req), notify); err != nil {
		return nil, fmt.Errorf("%s %s failed after %d attempt(s): %w", req.Method, req.URL.Redacted(), attempt, err)
	}
	return resp, nil
}
