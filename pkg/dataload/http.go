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
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/gmsdev/dataload/pkg/defaults"
)

// UserAgent is sent with every dataload request.
const UserAgent = "gms-dataload/1.0"

// DevClusterHost is the developer cluster domain, which serves self-signed
// certificates.
const DevClusterHost = "gms.cluster.local"

// HTTPConfig tunes the client built by NewHTTPClient.
type HTTPConfig struct {
	ConnectTimeout        time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	InsecureSkipVerify    bool

	// MaxRetries < 0 disables the retry transport.
	MaxRetries           int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// HTTPOption configures NewHTTPClient.
type HTTPOption func(*HTTPConfig)

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) HTTPOption {
	return func(c *HTTPConfig) {
		c.InsecureSkipVerify = skip
	}
}

// WithConnectTimeout bounds connection establishment.
func WithConnectTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPConfig) {
		if d > 0 {
			c.ConnectTimeout = d
		}
	}
}

// WithResponseHeaderTimeout bounds the wait for response headers of one attempt.
func WithResponseHeaderTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPConfig) {
		if d > 0 {
			c.ResponseHeaderTimeout = d
		}
	}
}

// WithRetry sets the retry budget and backoff bounds. Negative maxRetries
// turns retries off.
func WithRetry(maxRetries int, initial, maxInterval time.Duration) HTTPOption {
	return func(c *HTTPConfig) {
		c.MaxRetries = maxRetries
		if initial > 0 {
			c.RetryInitialInterval = initial
		}
		if maxInterval > 0 {
			c.RetryMaxInterval = maxInterval
		}
	}
}

// NewHTTPClient builds the client used to talk to a config-loader. It sets
// no overall Client.Timeout: the retry budget and the caller's context bound
// a call, while the transport bounds each attempt.
func NewHTTPClient(opts ...HTTPOption) *http.Client {
	cfg := &HTTPConfig{
		ConnectTimeout:        defaults.HTTPConnectTimeout,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaults.HTTPResponseHeaderTimeout,
		IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		MaxRetries:            defaults.RetryMaxAttempts,
		RetryInitialInterval:  defaults.RetryInitialInterval,
		RetryMaxInterval:      defaults.RetryMaxInterval,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: defaults.HTTPKeepAlive,
		}).DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed dev clusters
		},
	}

	if cfg.MaxRetries < 0 {
		return &http.Client{Transport: base}
	}

	rt := NewRetryTransport(base)
	rt.MaxRetries = cfg.MaxRetries
	rt.InitialInterval = cfg.RetryInitialInterval
	rt.MaxInterval = cfg.RetryMaxInterval
	return &http.Client{Transport: rt}
}

// withoutRetry returns a copy of hc that sends each request once.
func withoutRetry(hc *http.Client) *http.Client {
	rt, ok := hc.Transport.(*RetryTransport)
	if !ok {
		return hc
	}
	cp := *hc
	cp.Transport = rt.base()
	return &cp
}

// InstanceURL is the config-loader base URL of an instance behind the
// cluster ingress.
func InstanceURL(instance, host string) string {
	return "https://" + instance + "." + host + "/config-loader"
}

// InsecureHost reports whether TLS verification is skipped for host.
func InsecureHost(host string) bool {
	return host == DevClusterHost
}
