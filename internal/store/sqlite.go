// Package store persists computation cycles in SQLite. Risk records are
// append-only: each cycle inserts new rows and never updates old ones, so the
// database doubles as the assessment history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zonewatch/riskcore/internal/domain"
)

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cycles (
			id TEXT PRIMARY KEY,
			computed_at DATETIME NOT NULL,
			zone_count INTEGER NOT NULL,
			plan_count INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS risk_records (
			cycle_id TEXT NOT NULL,
			zone_id TEXT NOT NULL,
			final_combined_risk REAL NOT NULL,
			risk_category TEXT NOT NULL,
			surge_level TEXT NOT NULL,
			computed_at DATETIME NOT NULL,
			record BLOB NOT NULL,
			PRIMARY KEY (cycle_id, zone_id),
			FOREIGN KEY (cycle_id) REFERENCES cycles(id)
		);

		CREATE TABLE IF NOT EXISTS allocations (
			cycle_id TEXT NOT NULL,
			resource_key TEXT NOT NULL,
			zone_id TEXT NOT NULL,
			allocated INTEGER NOT NULL,
			need_score REAL NOT NULL,
			guaranteed INTEGER NOT NULL,
			PRIMARY KEY (cycle_id, resource_key, zone_id),
			FOREIGN KEY (cycle_id) REFERENCES cycles(id)
		);

		CREATE INDEX IF NOT EXISTS idx_risk_records_zone ON risk_records(zone_id);
		CREATE INDEX IF NOT EXISTS idx_risk_records_computed ON risk_records(computed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveCycle writes a completed cycle, its risk records, and its allocation
// plans in a single transaction. Either the whole cycle persists or none of
// it does.
func (s *Store) SaveCycle(ctx context.Context, cycleID string, computedAt time.Time, records []domain.FusedRiskRecord, plans []domain.AllocationPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cycles (id, computed_at, zone_count, plan_count) VALUES (?, ?, ?, ?)`,
		cycleID, computedAt, len(records), len(plans),
	); err != nil {
		return fmt.Errorf("inserting cycle %s: %w", cycleID, err)
	}

	for i := range records {
		rec := &records[i]
		blob, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record for zone %s: %w", rec.ZoneID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO risk_records (cycle_id, zone_id, final_combined_risk, risk_category, surge_level, computed_at, record)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cycleID, rec.ZoneID, rec.FinalCombinedRisk, string(rec.RiskCategory), string(rec.SurgeLevel), rec.ComputedAt, blob,
		); err != nil {
			return fmt.Errorf("inserting record for zone %s: %w", rec.ZoneID, err)
		}
	}

	for _, plan := range plans {
		for _, za := range plan.Zones {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO allocations (cycle_id, resource_key, zone_id, allocated, need_score, guaranteed)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				cycleID, plan.ResourceKey, za.ZoneID, za.Allocated, za.NeedScore, za.Guaranteed,
			); err != nil {
				return fmt.Errorf("inserting allocation %s/%s: %w", plan.ResourceKey, za.ZoneID, err)
			}
		}
	}

	return tx.Commit()
}

// LatestRecords returns the most recently persisted risk record per zone,
// keyed by zone ID. Used to seed the prior-cycle snapshot after a restart.
func (s *Store) LatestRecords(ctx context.Context) (map[string]domain.FusedRiskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.record
		FROM risk_records r
		JOIN (
			SELECT zone_id, MAX(computed_at) AS computed_at
			FROM risk_records
			GROUP BY zone_id
		) latest ON r.zone_id = latest.zone_id AND r.computed_at = latest.computed_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying latest records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.FusedRiskRecord)
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var rec domain.FusedRiskRecord
		if err := json.Unmarshal(blob, &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling record: %w", err)
		}
		out[rec.ZoneID] = rec
	}
	return out, rows.Err()
}

// CycleCount reports how many cycles have been persisted.
func (s *Store) CycleCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
