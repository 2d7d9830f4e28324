// Package storage persists formulation scenarios.
//
// ScenarioStore keeps each snapshot as a JSON document alongside a
// per-ingredient inclusion table, in a SQLite database opened through the
// pure-Go modernc.org/sqlite driver.
package storage
