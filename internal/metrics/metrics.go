/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

const namespace = "diet"

// Label names.
const (
	LabelStatus  = "status"
	LabelSuccess = "success"
	LabelKind    = "kind"
)

// Recorder emits formulation metrics to Prometheus. It satisfies
// optimizer.Recorder.
type Recorder struct {
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	violations  *prometheus.CounterVec
	cost        prometheus.Gauge
	ingredients prometheus.Gauge
}

// NewRecorder creates the formulation metrics and registers them with reg.
// A nil reg leaves the metrics unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "formulations_total",
			Help:      "Formulation runs by result status and success.",
		}, []string{LabelStatus, LabelSuccess}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "formulation_duration_seconds",
			Help:      "Wall time of a formulation run, including validation and interpretation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slack_violations_total",
			Help:      "Soft constraints relaxed by the solver, by constraint family.",
		}, []string{LabelKind}),
		cost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_cost",
			Help:      "Total batch cost of the most recent formulation.",
		}),
		ingredients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_ingredient_count",
			Help:      "Ingredients with positive inclusion in the most recent formulation.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.runs, r.duration, r.violations, r.cost, r.ingredients)
	}
	return r
}

// RecordFormulation records one completed run.
func (r *Recorder) RecordFormulation(result *v1alpha1.FormulationResult, elapsed time.Duration) {
	if result == nil {
		return
	}
	r.runs.WithLabelValues(string(result.Status), strconv.FormatBool(result.Success)).Inc()
	r.duration.Observe(elapsed.Seconds())
	for _, v := range result.Violations {
		r.violations.WithLabelValues(string(v.Kind)).Inc()
	}
	r.cost.Set(result.TotalCost)
	r.ingredients.Set(float64(len(result.Composition)))
}
