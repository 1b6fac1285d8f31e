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

import "sync/atomic"

// Status is the progress of the most recent job.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusFinished Status = "FINISHED"
)

// Result is the outcome of the most recent job as served by GET /result.
type Result struct {
	Status     Status `json:"status" yaml:"status"`
	Successful bool   `json:"successful" yaml:"successful"`
	Message    string `json:"result" yaml:"result"`
}

// Pending is the result published when a job is accepted.
func Pending() Result {
	return Result{Status: StatusPending}
}

// Succeeded is a finished, successful result.
func Succeeded(message string) Result {
	return Result{Status: StatusFinished, Successful: true, Message: message}
}

// Failed is a finished, failed result.
func Failed(message string) Result {
	return Result{Status: StatusFinished, Message: message}
}

// Finished reports whether the job has terminated.
func (r Result) Finished() bool {
	return r.Status == StatusFinished
}

// ResultStore holds the latest Result. Readers never block and always see a
// whole value.
type ResultStore struct {
	current atomic.Pointer[Result]
}

// NewResultStore returns an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Get returns the latest result, or false when no job was ever submitted.
func (s *ResultStore) Get() (Result, bool) {
	r := s.current.Load()
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

// Set replaces the latest result.
func (s *ResultStore) Set(r Result) {
	s.current.Store(&r)
}
