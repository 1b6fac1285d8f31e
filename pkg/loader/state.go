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
	"log/slog"
	"net/http"
	"sync"
)

// LoadState is the lifecycle state of the instance's configuration.
type LoadState string

const (
	StateReady   LoadState = "READY"
	StateLoading LoadState = "LOADING"
	StateLoaded  LoadState = "LOADED"
)

var allStates = []LoadState{StateReady, StateLoading, StateLoaded}

// Admission is the answer to a load or reload submission.
type Admission int

const (
	// Admitted means the submission moved the instance to LOADING.
	Admitted Admission = iota
	// RejectedAlreadyLoading means a job is already in flight. Callers treat
	// it as a no-op rather than an error.
	RejectedAlreadyLoading
	// RejectedAlreadyLoaded means an initial load was asked for after one
	// already ran.
	RejectedAlreadyLoaded
	// RejectedNeverLoaded means a reload was asked for before any initial load.
	RejectedNeverLoaded
)

// Wire texts for admission answers. Clients match on the status code, but the
// texts are kept stable for operators reading logs.
const (
	MessageQueued         = "load queued"
	MessageAlreadyLoading = "request ignored: previously queued load pending"
	MessageAlreadyLoaded  = "request failed: config previously loaded"
	MessageNeverLoaded    = "request ignored: initial load never performed"
)

func (a Admission) String() string {
	switch a {
	case Admitted:
		return "ADMITTED"
	case RejectedAlreadyLoading:
		return "ALREADY_LOADING"
	case RejectedAlreadyLoaded:
		return "ALREADY_LOADED"
	case RejectedNeverLoaded:
		return "NEVER_LOADED"
	default:
		return "UNKNOWN"
	}
}

// HTTPStatus returns the status code the admission is reported with.
func (a Admission) HTTPStatus() int {
	switch a {
	case Admitted, RejectedAlreadyLoading:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the response body text for the admission.
func (a Admission) Message() string {
	switch a {
	case Admitted:
		return MessageQueued
	case RejectedAlreadyLoading:
		return MessageAlreadyLoading
	case RejectedAlreadyLoaded:
		return MessageAlreadyLoaded
	case RejectedNeverLoaded:
		return MessageNeverLoaded
	default:
		return "request failed"
	}
}

// StateMachine guards the single LoadState cell of an instance. Admission
// is one check-and-set under the mutex, so concurrent submissions can never
// both be admitted. The zero value is not usable; call NewStateMachine.
type StateMachine struct {
	mu    sync.Mutex
	state LoadState
}

// NewStateMachine returns a state machine in READY.
func NewStateMachine() *StateMachine {
	m := &StateMachine{state: StateReady}
	recordState(m.state)
	return m
}

// SubmitInitialLoad admits an initial load iff the instance is READY.
func (m *StateMachine) SubmitInitialLoad() Admission {
	adm, _ := m.SubmitAndQueue(KindInitial, nil)
	return adm
}

// SubmitReload admits a reload iff the instance is LOADED.
func (m *StateMachine) SubmitReload() Admission {
	adm, _ := m.SubmitAndQueue(KindReload, nil)
	return adm
}

// Submit dispatches to SubmitInitialLoad or SubmitReload by job kind.
func (m *StateMachine) Submit(kind Kind) Admission {
	adm, _ := m.SubmitAndQueue(kind, nil)
	return adm
}

// SubmitAndQueue admits a submission and runs queue under the same lock as
// FinishAndPublish, so no submission sees LOADING next to the previous
// job's published result. When queue fails the state is left unchanged
// and its error returned with Admitted.
func (m *StateMachine) SubmitAndQueue(kind Kind, queue func() error) (Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := StateReady
	if kind == KindReload {
		from = StateLoaded
	}
	if m.state != from {
		return rejection(kind, m.state), nil
	}
	if queue != nil {
		if err := queue(); err != nil {
			return Admitted, err
		}
	}
	m.setLocked(StateLoading)
	return Admitted, nil
}

func rejection(kind Kind, current LoadState) Admission {
	switch {
	case current == StateLoading:
		return RejectedAlreadyLoading
	case kind == KindReload:
		return RejectedNeverLoaded
	default:
		return RejectedAlreadyLoaded
	}
}

// Finish moves LOADING to LOADED whatever the job outcome was. A failed
// initial load can therefore only be retried with a reload. It reports
// false when the instance was not LOADING.
func (m *StateMachine) Finish() bool {
	return m.FinishAndPublish(nil)
}

// FinishAndPublish runs publish and then moves LOADING to LOADED, both
// under the state lock. publish runs even when the instance was not
// LOADING.
func (m *StateMachine) FinishAndPublish(publish func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if publish != nil {
		publish()
	}
	if m.state != StateLoading {
		slog.Warn("job finished while not loading", "state", m.state)
		return false
	}
	m.setLocked(StateLoaded)
	return true
}

// State returns a snapshot of the current state.
func (m *StateMachine) State() LoadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// setLocked is the only place the state changes; m.mu must be held.
func (m *StateMachine) setLocked(to LoadState) {
	from := m.state
	m.state = to
	recordState(to)
	slog.Debug("load state changed", "from", from, "to", to)
}
