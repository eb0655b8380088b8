// Package store keeps a sqlite history of per-frame zone counts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/zoning"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id   TEXT PRIMARY KEY,
		started_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS zone_counts (
		session_id   TEXT NOT NULL,
		frame_number BIGINT NOT NULL,
		frame_time   DOUBLE,
		zone         TEXT NOT NULL,
		class        TEXT NOT NULL,
		present      BIGINT NOT NULL,
		entered      BIGINT NOT NULL,
		exited       BIGINT NOT NULL,
		recorded_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(session_id) REFERENCES sessions(session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_zone_counts_zone ON zone_counts(zone, frame_number);
`

// Store wraps the history database. Each Store opens a new session.
type Store struct {
	db      *sql.DB
	session string
}

// CountRow is one stored tally.
type CountRow struct {
	Session     string    `json:"session"`
	FrameNumber uint64    `json:"frame_number"`
	FrameTime   time.Time `json:"frame_time"`
	Zone        string    `json:"zone"`
	Class       string    `json:"class"`
	Present     int       `json:"present"`
	Entered     int       `json:"entered"`
	Exited      int       `json:"exited"`
}

// Open opens (creating if needed) the database at path and starts a session.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Writes come from the single frame loop.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db, session: uuid.New().String()}
	if _, err := db.Exec(`INSERT INTO sessions (session_id) VALUES (?)`, s.session); err != nil {
		db.Close()
		return nil, fmt.Errorf("start session: %w", err)
	}
	return s, nil
}

// Session returns the id of the session this Store writes under.
func (s *Store) Session() string { return s.session }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// RecordFrame stores the tallies of one frame in a single transaction.
func (s *Store) RecordFrame(ctx context.Context, info types.FrameInfo, counts []zoning.ZoneCount) error {
	if len(counts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zone_counts (session_id, frame_number, frame_time, zone, class, present, entered, exited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range counts {
		if _, err := stmt.ExecContext(ctx, s.session, int64(info.Number), info.UnixSeconds(),
			c.Zone, c.Class, c.Present, c.Entered, c.Exited); err != nil {
			return fmt.Errorf("insert %s/%s: %w", c.Zone, c.Class, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentCounts returns up to limit rows for zone from the current session,
// newest frame first. An empty zone returns every zone.
func (s *Store) RecentCounts(ctx context.Context, zone string, limit int) ([]CountRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, frame_number, frame_time, zone, class, present, entered, exited
		FROM zone_counts
		WHERE session_id = ? AND (? = '' OR zone = ?)
		ORDER BY frame_number DESC, rowid ASC
		LIMIT ?`, s.session, zone, zone, limit)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var out []CountRow
	for rows.Next() {
		var (
			r         CountRow
			frameNum  int64
			frameTime sql.NullFloat64
		)
		if err := rows.Scan(&r.Session, &frameNum, &frameTime, &r.Zone, &r.Class, &r.Present, &r.Entered, &r.Exited); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		r.FrameNumber = uint64(frameNum)
		if frameTime.Valid {
			r.FrameTime = types.TimeFromUnixSeconds(frameTime.Float64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
