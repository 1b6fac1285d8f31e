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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "config_loader_state",
			Help: "Current load state of the instance (1 for the active state)",
		},
		[]string{"state"},
	)

	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "config_loader_jobs_total",
			Help: "Total number of load jobs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "config_loader_job_duration_seconds",
			Help:    "Load job duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"kind"},
	)

	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "config_loader_admissions_total",
			Help: "Total number of load and reload submissions by admission",
		},
		[]string{"kind", "admission"},
	)
)

func recordState(current LoadState) {
	for _, s := range allStates {
		v := 0.0
		if s == current {
			v = 1
		}
		loadState.WithLabelValues(string(s)).Set(v)
	}
}
