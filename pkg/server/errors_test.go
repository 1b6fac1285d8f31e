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

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gmsdev/dataload/pkg/errors"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHTTPStatusFromCode(t *testing.T) {
	cases := map[apperrors.ErrorCode]int{
		apperrors.ErrCodeInvalidRequest:    http.StatusBadRequest,
		apperrors.ErrCodeNotFound:          http.StatusNotFound,
		apperrors.ErrCodeMethodNotAllowed:  http.StatusMethodNotAllowed,
		apperrors.ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
		apperrors.ErrCodeUnavailable:       http.StatusServiceUnavailable,
		apperrors.ErrCodeTimeout:           http.StatusGatewayTimeout,
		apperrors.ErrCodeInternal:          http.StatusInternalServerError,
		apperrors.ErrorCode("BOGUS"):       http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatusFromCode(code), code)
	}
}

func TestWriteError_MintsRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/load", nil)

	WriteError(rec, req, http.StatusRequestEntityTooLarge, apperrors.ErrCodeInvalidRequest,
		"bundle too large", false, map[string]any{"limit": 10})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeError(t, rec)
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
	assert.Equal(t, "bundle too large", resp.Message)
	assert.NotEmpty(t, resp.RequestID)
	assert.False(t, resp.Retryable)
	assert.EqualValues(t, 10, resp.Details["limit"])
}

func TestWriteErrorFromErr(t *testing.T) {
	t.Run("structured error keeps its code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/reload", nil)
		err := apperrors.WrapWithContext(apperrors.ErrCodeUnavailable, "config loader busy",
			errors.New("job running"), map[string]any{"state": "LOADING"})

		WriteErrorFromErr(rec, req, err, "unused", map[string]any{"path": "/reload"})

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Code)
		assert.Equal(t, "config loader busy", resp.Message)
		assert.True(t, resp.Retryable)
		assert.Equal(t, "LOADING", resp.Details["state"])
		assert.Equal(t, "/reload", resp.Details["path"])
		assert.Equal(t, "job running", resp.Details["error"])
	})

	t.Run("plain error falls back to internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/result", nil)

		WriteErrorFromErr(rec, req, errors.New("boom"), "result unavailable", nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "INTERNAL", resp.Code)
		assert.Equal(t, "result unavailable", resp.Message)
		assert.Equal(t, "boom", resp.Details["error"])
	})

	t.Run("caller details are not mutated", func(t *testing.T) {
		details := map[string]any{"a": 1}
		WriteErrorFromErr(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil),
			errors.New("x"), "failed", details)
		assert.Len(t, details, 1)
	})
}
