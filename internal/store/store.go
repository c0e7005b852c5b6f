// Package store persists classified readings in SQLite. The log is
// append-only: readings are written once per tick inside a transaction
// and never updated or deleted.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zonewatch/backend/internal/classify"
)

const schema = `
	CREATE TABLE IF NOT EXISTS readings (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		zone_id     TEXT NOT NULL,
		zone_name   TEXT NOT NULL,
		population  INTEGER NOT NULL,
		density     INTEGER NOT NULL,
		cluster     INTEGER NOT NULL,
		capacity    INTEGER NOT NULL,
		status      TEXT NOT NULL,
		timestamp   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_readings_zone_time ON readings(zone_id, timestamp);
`

// Store wraps the readings database. Safe for concurrent use: the tick
// loop appends while query handlers read.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the readings database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open readings db: %w", err)
	}

	// modernc sqlite serialises writes per connection; a single
	// connection also keeps :memory: databases coherent under the
	// database/sql pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create readings schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes all readings of one tick in a single transaction, so a
// tick becomes visible to readers as a unit or not at all.
func (s *Store) Append(ctx context.Context, readings []classify.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO readings
			(zone_id, zone_name, population, density, cluster, capacity, status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		_, err := stmt.ExecContext(ctx,
			r.ZoneID, r.ZoneName, r.Population, r.Density,
			r.Cluster, r.Capacity, string(r.Status), r.Timestamp.UnixNano())
		if err != nil {
			return fmt.Errorf("append reading for zone %s: %w", r.ZoneID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// LatestPerZone returns the most recent reading for every zone that has
// ever reported, one row per zone id, ordered by zone id.
func (s *Store) LatestPerZone(ctx context.Context) ([]classify.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.zone_id, r.zone_name, r.population, r.density,
		       r.cluster, r.capacity, r.status, r.timestamp
		FROM readings r
		JOIN (
			SELECT zone_id, MAX(id) AS max_id
			FROM readings
			GROUP BY zone_id
		) latest ON r.id = latest.max_id
		ORDER BY r.zone_id`)
	if err != nil {
		return nil, fmt.Errorf("query latest readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// History returns all readings for the zone with timestamp >= since,
// ascending by timestamp. An unknown zone id yields an empty result.
func (s *Store) History(ctx context.Context, zoneID string, since time.Time) ([]classify.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT zone_id, zone_name, population, density,
		       cluster, capacity, status, timestamp
		FROM readings
		WHERE zone_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC, id ASC`,
		zoneID, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query history for zone %s: %w", zoneID, err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]classify.Reading, error) {
	readings := []classify.Reading{}
	for rows.Next() {
		var r classify.Reading
		var status string
		var tsNanos int64

		err := rows.Scan(&r.ZoneID, &r.ZoneName, &r.Population, &r.Density,
			&r.Cluster, &r.Capacity, &status, &tsNanos)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}

		r.Status = classify.Status(status)
		r.Timestamp = time.Unix(0, tsNanos).UTC()
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return readings, nil
}
