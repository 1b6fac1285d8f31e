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

package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"k8s.io/utils/clock"

	apperrors "github.com/gmsdev/dataload/pkg/errors"
	"github.com/gmsdev/dataload/pkg/serializer"
	"github.com/gmsdev/dataload/pkg/server"
)

// Route paths served by Handler.
const (
	PathAlive  = "/alive"
	PathLoad   = "/load"
	PathReload = "/reload"
	PathResult = "/result"
)

// BundleField is the multipart form field carrying the override bundle.
const BundleField = "files"

const aliveBody = "alive"

// Handler serves the dataload protocol on top of a StateMachine, an
// Executor and a ResultStore.
type Handler struct {
	states         *StateMachine
	results        *ResultStore
	executor       *Executor
	clock          clock.PassiveClock
	maxBundleBytes int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxBundleBytes caps the submission body size.
func WithMaxBundleBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBundleBytes = n
		}
	}
}

// WithHandlerClock replaces the clock used to stamp jobs.
func WithHandlerClock(c clock.PassiveClock) HandlerOption {
	return func(h *Handler) {
		h.clock = c
	}
}

// NewHandler creates the protocol handler.
func NewHandler(states *StateMachine, results *ResultStore, executor *Executor, opts ...HandlerOption) *Handler {
	h := &Handler{
		states:         states,
		results:        results,
		executor:       executor,
		clock:          clock.RealClock{},
		maxBundleBytes: DefaultMaxBundleBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the handlers keyed by path, ready for server.WithHandler.
func (h *Handler) Routes() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		PathAlive:  h.Alive,
		PathLoad:   h.Load,
		PathReload: h.Reload,
		PathResult: h.Result,
	}
}

// Alive answers 200 once the executor is running and jobs can make progress.
func (h *Handler) Alive(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if !h.executor.Running() {
		server.WriteError(w, r, http.StatusServiceUnavailable, apperrors.ErrCodeUnavailable,
			"executor is not running", true, nil)
		return
	}
	writeText(w, http.StatusOK, aliveBody)
}

// Load handles POST /load.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, KindInitial)
}

// Reload handles POST /reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, KindReload)
}

// Result serves the most recent job result as JSON.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	res, ok := h.results.Get()
	if !ok {
		server.WriteError(w, r, http.StatusNotFound, apperrors.ErrCodeNotFound,
			"no load has been submitted", false, map[string]any{"state": string(h.states.State())})
		return
	}
	serializer.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, kind Kind) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	// The body is read in full before admission so a malformed upload never
	// moves the state machine.
	bundle, err := h.readBundle(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			server.WriteError(w, r, http.StatusRequestEntityTooLarge, apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("override bundle exceeds %d bytes", tooLarge.Limit), false, nil)
			return
		}
		server.WriteError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
			"malformed submission", false, map[string]any{"error": err.Error()})
		return
	}

	job := NewJob(kind, bundle, h.clock)
	adm, err := h.states.SubmitAndQueue(kind, func() error { return h.executor.Execute(job) })
	admissionsTotal.WithLabelValues(string(kind), adm.String()).Inc()
	if err != nil {
		slog.Error("admitted job could not be queued", "id", job.ID, "kind", kind, "error", err)
		server.WriteError(w, r, http.StatusServiceUnavailable, apperrors.ErrCodeUnavailable,
			err.Error(), true, map[string]any{"state": string(h.states.State())})
		return
	}
	if adm != Admitted {
		slog.Info("submission rejected", "kind", kind, "admission", adm, "state", h.states.State())
	}

	writeText(w, adm.HTTPStatus(), adm.Message())
}

// readBundle returns the "files" part of a multipart submission, or nil when
// the request carries no bundle.
func (h *Handler) readBundle(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBundleBytes)
	defer r.Body.Close()

	ct := r.Header.Get("Content-Type")
	if ct == "" {
		// No form at all; still enforce the size limit on whatever was sent.
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			return nil, err
		}
		return nil, nil
	}

	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, fmt.Errorf("invalid content type: %w", err)
	}
	if mediaType != "multipart/form-data" {
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}

	var bundle []byte
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return bundle, nil
		}
		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, err
		}
		if part.FormName() == BundleField && bundle == nil && len(data) > 0 {
			bundle = data
		}
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	server.WriteError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
		fmt.Sprintf("method %s not allowed", r.Method), false, nil)
	return false
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Warn("response write failed", "error", err)
	}
}
