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

// Phase is a step of the client protocol.
type Phase string

const (
	PhaseInit           Phase = "INIT"
	PhasePackaging      Phase = "PACKAGING"
	PhaseAwaitingLive   Phase = "AWAITING_LIVE"
	PhaseSubmitting     Phase = "SUBMITTING"
	PhaseAwaitingResult Phase = "AWAITING_RESULT"
	PhaseSuccess        Phase = "SUCCESS"
	PhaseFailure        Phase = "FAILURE"
)

// Terminal reports whether p ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseFailure
}
