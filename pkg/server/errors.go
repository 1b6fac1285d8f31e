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
	"errors"
	"maps"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/gmsdev/dataload/pkg/errors"
	"github.com/gmsdev/dataload/pkg/serializer"
)

// ErrorResponse is the JSON body of every non-2xx response written here.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

type codeMapping struct {
	status    int
	retryable bool
}

var codeMappings = map[apperrors.ErrorCode]codeMapping{
	apperrors.ErrCodeInvalidRequest:    {http.StatusBadRequest, false},
	apperrors.ErrCodeUnauthorized:      {http.StatusUnauthorized, false},
	apperrors.ErrCodeNotFound:          {http.StatusNotFound, false},
	apperrors.ErrCodeMethodNotAllowed:  {http.StatusMethodNotAllowed, false},
	apperrors.ErrCodeConflict:          {http.StatusConflict, false},
	apperrors.ErrCodeRateLimitExceeded: {http.StatusTooManyRequests, true},
	apperrors.ErrCodeUnavailable:       {http.StatusServiceUnavailable, true},
	apperrors.ErrCodeTimeout:           {http.StatusGatewayTimeout, true},
	apperrors.ErrCodeInternal:          {http.StatusInternalServerError, true},
}

// WriteError writes an ErrorResponse carrying the request ID, minting one
// when the request bypassed the middleware.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code apperrors.ErrorCode, message string, retryable bool, details map[string]any) {

	requestID := RequestID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}

	serializer.RespondJSON(w, statusCode, ErrorResponse{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// WriteErrorFromErr maps err onto a response. Structured errors keep their
// code, message and context; anything else is a 500 with fallbackMessage.
func WriteErrorFromErr(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string, details map[string]any) {
	merged := maps.Clone(details)
	add := func(k string, v any) {
		if merged == nil {
			merged = make(map[string]any)
		}
		merged[k] = v
	}

	var se *apperrors.StructuredError
	if !errors.As(err, &se) {
		if err != nil {
			add("error", err.Error())
		}
		WriteError(w, r, http.StatusInternalServerError, apperrors.ErrCodeInternal, fallbackMessage, true, merged)
		return
	}

	for k, v := range se.Context {
		add(k, v)
	}
	if se.Cause != nil {
		add("error", se.Cause.Error())
	}
	m := mappingFor(se.Code)
	WriteError(w, r, m.status, se.Code, se.Message, m.retryable, merged)
}

// HTTPStatusFromCode returns the status for code, 500 when unknown.
func HTTPStatusFromCode(code apperrors.ErrorCode) int {
	return mappingFor(code).status
}

func mappingFor(code apperrors.ErrorCode) codeMapping {
	if m, ok := codeMappings[code]; ok {
		return m
	}
	return codeMapping{http.StatusInternalServerError, false}
}
