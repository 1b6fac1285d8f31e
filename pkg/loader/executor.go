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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/gmsdev/dataload/pkg/overrides"
)

var (
	// ErrExecutorBusy is returned by Execute while a job is outstanding.
	ErrExecutorBusy = errors.New("executor busy: a job is already outstanding")

	// ErrExecutorRunning is returned by Run when the executor is already running.
	ErrExecutorRunning = errors.New("executor already running")
)

// Executor runs admitted jobs off the request goroutine. It holds at most
// one outstanding job; the worker hands each finished job to a publisher over
// a channel, and the publisher writes the Result before releasing the state
// machine.
type Executor struct {
	loader  Loader
	states  *StateMachine
	results *ResultStore

	workDir    string
	jobTimeout time.Duration
	clock      clock.Clock

	queue       chan *Job
	outstanding atomic.Bool
	running     atomic.Bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithWorkDir sets the parent directory for extracted bundles.
func WithWorkDir(dir string) ExecutorOption {
	return func(e *Executor) {
		e.workDir = dir
	}
}

// WithJobTimeout bounds each job. Zero means no bound.
func WithJobTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.jobTimeout = d
	}
}

// WithClock replaces the real clock, for tests.
func WithClock(c clock.Clock) ExecutorOption {
	return func(e *Executor) {
		e.clock = c
	}
}

// NewExecutor creates an executor publishing into results and states.
func NewExecutor(l Loader, states *StateMachine, results *ResultStore, opts ...ExecutorOption) *Executor {
	e := &Executor{
		loader:  l,
		states:  states,
		results: results,
		clock:   clock.RealClock{},
		queue:   make(chan *Job, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether Run is active.
func (e *Executor) Running() bool {
	return e.running.Load()
}

// Execute queues an admitted job and publishes PENDING for it. It never
// blocks; ErrExecutorBusy means a previous job has not been published yet.
func (e *Executor) Execute(job *Job) error {
	if !e.outstanding.CompareAndSwap(false, true) {
		return ErrExecutorBusy
	}

	// PENDING must be visible before the submission is answered, otherwise a
	// fast poller could read the previous job's FINISHED.
	e.results.Set(Pending())
	e.queue <- job

	slog.Info("job queued", "id", job.ID, "kind", job.Kind, "bundle", job.HasBundle())
	return nil
}

// Run processes jobs until ctx is cancelled. A job still queued at shutdown
// is published as failed so no PENDING result outlives the worker.
func (e *Executor) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrExecutorRunning
	}
	defer e.running.Store(false)

	done := make(chan *Job)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(done)
		for {
			select {
			case <-gctx.Done():
				select {
				case job := <-e.queue:
					outcome := Failed("server shutting down before the job started")
					job.Outcome = &outcome
					done <- job
				default:
				}
				return nil
			case job := <-e.queue:
				e.run(gctx, job)
				done <- job
			}
		}
	})

	g.Go(func() error {
		for job := range done {
			e.publish(job)
		}
		return nil
	})

	slog.Info("executor started", "workDir", e.workDir, "jobTimeout", e.jobTimeout)
	err := g.Wait()
	slog.Info("executor stopped")
	return err
}

func (e *Executor) run(ctx context.Context, job *Job) {
	start := e.clock.Now()
	slog.Info("job started", "id", job.ID, "kind", job.Kind,
		"queued", start.Sub(job.SubmittedAt).String())

	outcome := e.invoke(ctx, job)
	job.Outcome = &outcome

	elapsed := e.clock.Since(start)
	label := "success"
	if !outcome.Successful {
		label = "failure"
	}
	jobsTotal.WithLabelValues(string(job.Kind), label).Inc()
	jobDuration.WithLabelValues(string(job.Kind)).Observe(elapsed.Seconds())

	slog.Info("job finished", "id", job.ID, "kind", job.Kind,
		"successful", outcome.Successful, "duration", elapsed.String())
}

// invoke runs the loader once and converts every way it can end, including
// a panic, into a finished Result.
func (e *Executor) invoke(ctx context.Context, job *Job) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("load panicked", "id", job.ID, "panic", r)
			res = Failed(fmt.Sprintf("load failed unexpectedly: %v", r))
		}
	}()

	if e.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.jobTimeout)
		defer cancel()
	}

	var dir string
	if job.HasBundle() {
		tmp, err := os.MkdirTemp(e.workDir, "dataload-"+job.ID.String()+"-")
		if err != nil {
			return Failed(fmt.Sprintf("failed to create override directory: %v", err))
		}
		defer func() {
			if err := os.RemoveAll(tmp); err != nil {
				slog.Warn("failed to remove override directory", "dir", tmp, "error", err)
			}
		}()

		n, err := overrides.Extract(bytes.NewReader(job.Bundle), tmp)
		if err != nil {
			return Failed(fmt.Sprintf("invalid override bundle: %v", err))
		}
		slog.Debug("override bundle extracted", "id", job.ID, "dir", tmp, "files", n)
		dir = tmp
	}

	msg, err := e.loader.Load(ctx, job, dir)
	if err != nil {
		return Failed(err.Error())
	}
	return Succeeded(msg)
}

func (e *Executor) publish(job *Job) {
	outcome := Failed("job returned no outcome")
	if job.Outcome != nil {
		outcome = *job.Outcome
	}
	e.states.FinishAndPublish(func() {
		e.results.Set(outcome)
		e.outstanding.Store(false)
	})
}
