// Package metrics emits formulation metrics to Prometheus.
//
// The Recorder is handed to optimizer.NewFormulator through
// optimizer.WithRecorder and is called once per Formulate call, whatever the
// outcome. The serve command exposes the registry on /metrics.
//
// # Metrics
//
//	diet_formulations_total{status="Optimal", success="true"}      counter
//	diet_formulation_duration_seconds                              histogram
//	diet_slack_violations_total{kind="Nutrient|Category|Ratio"}    counter
//	diet_last_batch_cost                                           gauge
//	diet_last_ingredient_count                                     gauge
//
// A rising diet_slack_violations_total with success="false" runs usually
// means the ingredient table can no longer meet the requirement profile.
//
// Example usage:
//
//	reg := prometheus.NewRegistry()
//	f, err := optimizer.NewFormulator(cfg,
//	    optimizer.WithRecorder(metrics.NewRecorder(reg)),
//	)
package metrics
