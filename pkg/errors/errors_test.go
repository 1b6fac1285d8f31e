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

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("connection refused")
	ctx := map[string]any{"instance": "sandbox"}

	tests := []struct {
		name    string
		err     *StructuredError
		code    ErrorCode
		msg     string
		cause   error
		context map[string]any
	}{
		{"new", New(ErrCodeNotFound, "no job submitted"), ErrCodeNotFound, "no job submitted", nil, nil},
		{"newf", Newf(ErrCodeInvalidRequest, "--timeout must be positive, got %d", 0), ErrCodeInvalidRequest, "--timeout must be positive, got 0", nil, nil},
		{"new with context", NewWithContext(ErrCodeConflict, "not started", ctx), ErrCodeConflict, "not started", nil, ctx},
		{"wrap", Wrap(ErrCodeUnavailable, "loader unreachable", cause), ErrCodeUnavailable, "loader unreachable", cause, nil},
		{"wrap with context", WrapWithContext(ErrCodeTimeout, "result wait failed", cause, ctx), ErrCodeTimeout, "result wait failed", cause, ctx},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.msg, tt.err.Message)
			assert.Equal(t, tt.cause, tt.err.Cause)
			assert.Equal(t, tt.context, tt.err.Context)
		})
	}
}

func TestError(t *testing.T) {
	assert.Equal(t, "[NOT_FOUND] no job submitted", New(ErrCodeNotFound, "no job submitted").Error())
	assert.Equal(t, "[TIMEOUT] wait failed: context deadline exceeded",
		Wrap(ErrCodeTimeout, "wait failed", context.DeadlineExceeded).Error())
}

func TestUnwrap(t *testing.T) {
	err := fmt.Errorf("load failed: %w", Wrap(ErrCodeTimeout, "wait failed", context.DeadlineExceeded))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var se *StructuredError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeTimeout, se.Code)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(nil))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, ErrCodeNotFound, CodeOf(fmt.Errorf("outer: %w", New(ErrCodeNotFound, "x"))))

	nested := Wrap(ErrCodeUnavailable, "outer", New(ErrCodeNotFound, "inner"))
	assert.Equal(t, ErrCodeUnavailable, CodeOf(nested))
}

func TestHasCode(t *testing.T) {
	nested := fmt.Errorf("reload: %w", Wrap(ErrCodeUnavailable, "outer", New(ErrCodeNotFound, "inner")))

	assert.True(t, HasCode(nested, ErrCodeUnavailable))
	assert.True(t, HasCode(nested, ErrCodeNotFound))
	assert.False(t, HasCode(nested, ErrCodeTimeout))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeInternal))
	assert.False(t, HasCode(nil, ErrCodeInternal))
}
