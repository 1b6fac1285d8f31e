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
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"
)

// Kind selects the initial load or a reload.
type Kind string

const (
	KindInitial Kind = "INITIAL"
	KindReload  Kind = "RELOAD"
)

// Endpoint returns the submission path segment for the kind.
func (k Kind) Endpoint() string {
	if k == KindReload {
		return "reload"
	}
	return "load"
}

// Job is one admitted load or reload. The executor owns it from submission
// until its Outcome is published.
type Job struct {
	ID          uuid.UUID
	Kind        Kind
	Bundle      []byte
	SubmittedAt time.Time

	// Outcome is set exactly once, when the job's work returns.
	Outcome *Result
}

// NewJob creates a job stamped with the clock's current time. A zero-length
// bundle is treated as absent.
func NewJob(kind Kind, bundle []byte, clk clock.PassiveClock) *Job {
	if len(bundle) == 0 {
		bundle = nil
	}
	return &Job{
		ID:          uuid.New(),
		Kind:        kind,
		Bundle:      bundle,
		SubmittedAt: clk.Now(),
	}
}

// HasBundle reports whether the job carries override files.
func (j *Job) HasBundle() bool {
	return len(j.Bundle) > 0
}
