// File: statsdb/statsdb.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SQLite recorder for queue fill statistics.

package statsdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/momentics/mediabuf/api"
	"github.com/momentics/mediabuf/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS queue_stats (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	queue       TEXT    NOT NULL,
	taken_at    INTEGER NOT NULL,
	curr_fill   INTEGER NOT NULL,
	max_fill    INTEGER NOT NULL,
	avg_fill    INTEGER NOT NULL,
	mean_target INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS queue_stats_queue_time ON queue_stats (queue, taken_at);
`

// Sample is one recorded QueueStats snapshot.
type Sample struct {
	Queue string
	At    time.Time
	Stats api.QueueStats
}

// DB records samples into one sqlite file.
type DB struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Open opens or creates the database at path. ":memory:" works for tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("statsdb: open %s: %w", path, err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("statsdb: schema: %w", err)
	}
	insert, err := db.Prepare(`INSERT INTO queue_stats
		(queue, taken_at, curr_fill, max_fill, avg_fill, mean_target)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("statsdb: prepare: %w", err)
	}
	log.Debug("statsdb: opened", "path", path)
	return &DB{db: db, insert: insert}, nil
}

// Record stores one sample.
func (d *DB) Record(ctx context.Context, s Sample) error {
	_, err := d.insert.ExecContext(ctx,
		s.Queue,
		s.At.UnixNano(),
		s.Stats.CurrFillLevel,
		s.Stats.MaxFillLevel,
		int64(s.Stats.AvgFillLevel),
		int64(s.Stats.MeanTargetArea),
	)
	if err != nil {
		return fmt.Errorf("statsdb: record: %w", err)
	}
	return nil
}

// Samples returns the samples of queue taken at or after since, oldest
// first. limit <= 0 means no limit.
func (d *DB) Samples(ctx context.Context, queue string, since time.Time, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = -1
	}
	from := int64(math.MinInt64)
	if !since.IsZero() {
		from = since.UnixNano()
	}
	rows, err := d.db.QueryContext(ctx, `SELECT taken_at, curr_fill, max_fill, avg_fill, mean_target
		FROM queue_stats WHERE queue = ? AND taken_at >= ?
		ORDER BY taken_at, id LIMIT ?`, queue, from, limit)
	if err != nil {
		return nil, fmt.Errorf("statsdb: query: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			at        int64
			avg, mean int64
			s         = Sample{Queue: queue}
		)
		if err := rows.Scan(&at, &s.Stats.CurrFillLevel, &s.Stats.MaxFillLevel, &avg, &mean); err != nil {
			return nil, fmt.Errorf("statsdb: scan: %w", err)
		}
		s.At = time.Unix(0, at)
		s.Stats.AvgFillLevel = api.Fixed(avg)
		s.Stats.MeanTargetArea = api.Fixed(mean)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database.
func (d *DB) Close() error {
	d.insert.Close()
	return d.db.Close()
}
