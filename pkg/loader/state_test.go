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
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		start     LoadState
		kind      Kind
		want      Admission
		wantState LoadState
	}{
		{"load from ready", StateReady, KindInitial, Admitted, StateLoading},
		{"load while loading", StateLoading, KindInitial, RejectedAlreadyLoading, StateLoading},
		{"load after loaded", StateLoaded, KindInitial, RejectedAlreadyLoaded, StateLoaded},
		{"reload from loaded", StateLoaded, KindReload, Admitted, StateLoading},
		{"reload while loading", StateLoading, KindReload, RejectedAlreadyLoading, StateLoading},
		{"reload never loaded", StateReady, KindReload, RejectedNeverLoaded, StateReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStateMachine()
			m.state = tt.start

			assert.Equal(t, tt.want, m.Submit(tt.kind))
			assert.Equal(t, tt.wantState, m.State())
		})
	}
}

func TestStateMachine_FinishAlwaysLoaded(t *testing.T) {
	m := NewStateMachine()
	require.Equal(t, Admitted, m.SubmitInitialLoad())

	assert.True(t, m.Finish())
	assert.Equal(t, StateLoaded, m.State())

	// finish outside LOADING changes nothing
	assert.False(t, m.Finish())
	assert.Equal(t, StateLoaded, m.State())

	fresh := NewStateMachine()
	assert.False(t, fresh.Finish())
	assert.Equal(t, StateReady, fresh.State())
}

func TestStateMachine_SingleFlight(t *testing.T) {
	for _, start := range []LoadState{StateReady, StateLoaded} {
		t.Run(string(start), func(t *testing.T) {
			m := NewStateMachine()
			m.state = start

			const workers = 64
			results := make(chan Admission, workers)
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if i%2 == 0 {
						results <- m.SubmitInitialLoad()
					} else {
						results <- m.SubmitReload()
					}
				}(i)
			}
			wg.Wait()
			close(results)

			admitted := 0
			for a := range results {
				if a == Admitted {
					admitted++
				}
			}
			assert.Equal(t, 1, admitted)
			assert.Equal(t, StateLoading, m.State())
		})
	}
}

func TestAdmission_Wire(t *testing.T) {
	tests := []struct {
		a      Admission
		status int
		body   string
	}{
		{Admitted, http.StatusOK, "load queued"},
		{RejectedAlreadyLoading, http.StatusOK, "request ignored: previously queued load pending"},
		{RejectedAlreadyLoaded, http.StatusInternalServerError, "request failed: config previously loaded"},
		{RejectedNeverLoaded, http.StatusInternalServerError, "request ignored: initial load never performed"},
	}
	for _, tt := range tests {
		t.Run(tt.a.String(), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.a.HTTPStatus())
			assert.Equal(t, tt.body, tt.a.Message())
		})
	}
	assert.Equal(t, "UNKNOWN", Admission(99).String())
}

func TestStateMachine_QueueFailureKeepsState(t *testing.T) {
	m := NewStateMachine()
	busy := errors.New("busy")

	adm, err := m.SubmitAndQueue(KindInitial, func() error { return busy })
	assert.ErrorIs(t, err, busy)
	assert.Equal(t, Admitted, adm)
	assert.Equal(t, StateReady, m.State())

	queued := false
	adm, err = m.SubmitAndQueue(KindInitial, func() error { queued = true; return nil })
	require.NoError(t, err)
	assert.Equal(t, Admitted, adm)
	assert.True(t, queued)
	assert.Equal(t, StateLoading, m.State())
}

func TestStateMachine_RejectedSubmissionDoesNotQueue(t *testing.T) {
	m := NewStateMachine()
	adm, err := m.SubmitAndQueue(KindReload, func() error {
		t.Fatal("rejected submission must not queue")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, RejectedNeverLoaded, adm)
}

// A reload arriving while a job publishes its result waits for the
// publish and is then admitted, instead of being ignored as still loading.
func TestStateMachine_PublishIsAtomicWithAdmission(t *testing.T) {
	m := NewStateMachine()
	require.Equal(t, Admitted, m.Submit(KindInitial))

	inside := make(chan struct{})
	release := make(chan struct{})
	go m.FinishAndPublish(func() {
		close(inside)
		<-release
	})
	<-inside

	admitted := make(chan Admission, 1)
	go func() { admitted <- m.SubmitReload() }()

	select {
	case a := <-admitted:
		t.Fatalf("submission answered %s while the result was being published", a)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.Equal(t, Admitted, <-admitted)
	assert.Equal(t, StateLoading, m.State())
}
