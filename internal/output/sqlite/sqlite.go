// Package sqlite archives parsed reports in a SQLite database.
//
// Every Write becomes one run: a row in runs plus its events, event rows, fee
// values and diagnostics, inserted in a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/eventimx/internal/clock"
	"github.com/crimson-sun/eventimx/internal/model"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

const schema = `
CREATE TABLE IF NOT EXISTS runs(
  id        TEXT PRIMARY KEY,
  source    TEXT NOT NULL,
  parsed_at TEXT NOT NULL,
  fee_names TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events(
  id          INTEGER PRIMARY KEY,
  run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  event_id    INTEGER,
  date        TEXT,
  event_name  TEXT NOT NULL,
  location_id TEXT NOT NULL,
  location    TEXT NOT NULL,
  address     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS event_rows(
  id                INTEGER PRIMARY KEY,
  event_pk          INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
  position          INTEGER NOT NULL,
  discount_category TEXT NOT NULL,
  price_category    TEXT
);
CREATE TABLE IF NOT EXISTS row_values(
  row_id   INTEGER NOT NULL REFERENCES event_rows(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  fee_name TEXT NOT NULL,
  value    REAL NOT NULL,
  PRIMARY KEY(row_id, fee_name)
);
CREATE TABLE IF NOT EXISTS diagnostics(
  run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  kind        TEXT NOT NULL,
  token_index INTEGER NOT NULL,
  text        TEXT NOT NULL,
  detail      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
CREATE INDEX IF NOT EXISTS idx_events_event_id ON events(event_id);
CREATE INDEX IF NOT EXISTS idx_rows_event ON event_rows(event_pk);
`

// Option configures a sqlite Output.
type Option func(*Output)

// WithClock sets the clock used for runs.parsed_at.
func WithClock(c clock.Clock) Option {
	return func(o *Output) { o.clock = c }
}

// Output writes each report to the database as it arrives.
type Output struct {
	mu     sync.Mutex
	db     *sql.DB
	clock  clock.Clock
	runIDs []string
}

// New opens (creating if needed) the database at path and ensures the schema.
func New(path string, opts ...Option) (*Output, error) {
	// WAL + busy timeout to avoid "database is locked"
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite output: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite output: create tables: %w", err)
	}

	o := &Output{db: db, clock: clock.NewSystem()}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunIDs returns the ids of the runs written so far, oldest first.
func (o *Output) RunIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.runIDs))
	copy(out, o.runIDs)
	return out
}

func (o *Output) Write(ctx context.Context, report model.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	runID := uuid.NewString()
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite output: begin: %w", err)
	}
	if err := insertReport(ctx, tx, runID, o.clock.Now(), report); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite output: %s: %w", report.Source, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite output: commit: %w", err)
	}
	o.runIDs = append(o.runIDs, runID)
	return nil
}

func (o *Output) Close() error {
	return o.db.Close()
}

func insertReport(ctx context.Context, tx *sql.Tx, runID string, now time.Time, report model.Report) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(id, source, parsed_at, fee_names) VALUES(?,?,?,?)`,
		runID, report.Source, now.UTC().Format(time.RFC3339), strings.Join(report.AllFeeNames, "\n"),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, ev := range report.Events {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO events(run_id, event_id, date, event_name, location_id, location, address) VALUES(?,?,?,?,?,?,?)`,
			runID, nullableID(ev), nullableDate(ev.Date), ev.EventName, ev.LocationID, ev.Location, ev.Address,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		eventPK, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("event id: %w", err)
		}
		if err := insertRows(ctx, tx, eventPK, ev.Rows); err != nil {
			return err
		}
	}

	for _, d := range report.Diagnostics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO diagnostics(run_id, kind, token_index, text, detail) VALUES(?,?,?,?,?)`,
			runID, string(d.Kind), d.Index, d.Text, d.Detail,
		); err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, eventPK int64, rows []model.Row) error {
	for pos, row := range rows {
		var price any
		if row.HasPriceCategory {
			price = row.PriceCategory
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO event_rows(event_pk, position, discount_category, price_category) VALUES(?,?,?,?)`,
			eventPK, pos, row.DiscountCategory, price,
		)
		if err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("row id: %w", err)
		}
		for i, name := range row.Values.Keys() {
			v, _ := row.Values.Get(name)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO row_values(row_id, position, fee_name, value) VALUES(?,?,?,?)`,
				rowID, i, name, v,
			); err != nil {
				return fmt.Errorf("insert value %q: %w", name, err)
			}
		}
	}
	return nil
}

func nullableID(ev model.Event) any {
	if !ev.HasID {
		return nil
	}
	return ev.ID
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}
