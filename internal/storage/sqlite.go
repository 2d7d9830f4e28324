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

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/scenario"
)

// ErrNotFound is returned when no scenario matches the given ID or name.
var ErrNotFound = errors.New("scenario not found")

// Summary is the listing view of a stored scenario.
type Summary struct {
	ID          string                     `json:"id" yaml:"id"`
	Name        string                     `json:"name" yaml:"name"`
	CreatedAt   time.Time                  `json:"createdAt" yaml:"createdAt"`
	TotalCost   float64                    `json:"totalCost" yaml:"totalCost"`
	Status      v1alpha1.FormulationStatus `json:"status" yaml:"status"`
	Success     bool                       `json:"success" yaml:"success"`
	Ingredients int                        `json:"ingredients" yaml:"ingredients"`
}

// ScenarioStore persists scenario snapshots in a SQLite database.
type ScenarioStore struct {
	db *sql.DB
}

// NewScenarioStore opens (or creates) the database at dbPath.
func NewScenarioStore(dbPath string) (*ScenarioStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps the foreign_keys pragma in effect for every statement
	db.SetMaxOpenConns(1)

	store := &ScenarioStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close releases the database.
func (s *ScenarioStore) Close() error {
	return s.db.Close()
}

func (s *ScenarioStore) initSchema() error {
	schema := `
    PRAGMA foreign_keys = ON;

    CREATE TABLE IF NOT EXISTS scenarios (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        total_cost REAL NOT NULL,
        batch_size REAL NOT NULL,
        status TEXT NOT NULL,
        success INTEGER NOT NULL,
        snapshot TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS scenario_inclusions (
        scenario_id TEXT NOT NULL,
        ingredient TEXT NOT NULL,
        percent REAL NOT NULL,
        PRIMARY KEY (scenario_id, ingredient),
        FOREIGN KEY (scenario_id) REFERENCES scenarios(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_scenarios_name ON scenarios(name);
    CREATE INDEX IF NOT EXISTS idx_scenarios_created_at ON scenarios(created_at);
    `
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save inserts or replaces a snapshot.
func (s *ScenarioStore) Save(ctx context.Context, snap scenario.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode scenario %q: %w", snap.Name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, snap.ID); err != nil {
		return fmt.Errorf("failed to replace scenario: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO scenarios (id, name, created_at, total_cost, batch_size, status, success, snapshot)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, snap.ID, snap.Name, snap.CreatedAt.UTC(), snap.TotalCost, snap.BatchSize,
		string(snap.Status), snap.Success, string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert scenario: %w", err)
	}

	for ingredient, pct := range snap.Diet {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO scenario_inclusions (scenario_id, ingredient, percent)
            VALUES (?, ?, ?)
        `, snap.ID, ingredient, pct)
		if err != nil {
			return fmt.Errorf("failed to insert inclusion: %w", err)
		}
	}
	return tx.Commit()
}

// Get returns the snapshot whose ID or name matches ref. When several
// scenarios share a name, the most recent wins.
func (s *ScenarioStore) Get(ctx context.Context, ref string) (scenario.Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
        SELECT snapshot FROM scenarios
        WHERE id = ? OR name = ?
        ORDER BY (id = ?) DESC, created_at DESC
        LIMIT 1
    `, ref, ref, ref).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return scenario.Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	if err != nil {
		return scenario.Snapshot{}, fmt.Errorf("failed to query scenario: %w", err)
	}

	var snap scenario.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return scenario.Snapshot{}, fmt.Errorf("failed to decode scenario %q: %w", ref, err)
	}
	return snap, nil
}

// List returns every stored scenario, oldest first.
func (s *ScenarioStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT s.id, s.name, s.created_at, s.total_cost, s.status, s.success,
               (SELECT COUNT(*) FROM scenario_inclusions i WHERE i.scenario_id = s.id AND i.percent > 0)
        FROM scenarios s
        ORDER BY s.created_at, s.name
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var status string
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.CreatedAt, &sum.TotalCost, &status, &sum.Success, &sum.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		sum.Status = v1alpha1.FormulationStatus(status)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the scenario with the given ID.
func (s *ScenarioStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return nil
}
