// Package catalog keeps a SQLite ledger of geotag writes.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("catalog: entry not found")

// DefaultLimit caps List when no positive limit is given.
const DefaultLimit = 50

// Entry is one recorded geotag write.
type Entry struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Output    string    `json:"output,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	LatRef    string    `json:"lat_ref"`
	LonRef    string    `json:"lon_ref"`
	BytesIn   int       `json:"bytes_in"`
	BytesOut  int       `json:"bytes_out"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps the SQLite database.
type Store struct {
	DB  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// one writer at a time; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	s := &Store{DB: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS geotags (
            id TEXT PRIMARY KEY,
            source TEXT NOT NULL,
            output TEXT,
            latitude REAL NOT NULL,
            longitude REAL NOT NULL,
            lat_ref TEXT NOT NULL,
            lon_ref TEXT NOT NULL,
            bytes_in INTEGER NOT NULL,
            bytes_out INTEGER NOT NULL,
            created_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_geotags_created_at ON geotags(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create catalog schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Record stores e, assigning its ID and CreatedAt when they are empty.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return Entry{}, fmt.Errorf("failed to generate entry id: %w", err)
		}
		e.ID = id.String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	sqlStr, args, err := psql.Insert("geotags").
		Columns("id", "source", "output", "latitude", "longitude", "lat_ref", "lon_ref", "bytes_in", "bytes_out", "created_at").
		Values(e.ID, e.Source, e.Output, e.Latitude, e.Longitude, e.LatRef, e.LonRef, e.BytesIn, e.BytesOut, e.CreatedAt.UnixNano()).
		ToSql()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to build SQL for Record: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return Entry{}, fmt.Errorf("failed to record geotag for %s: %w", e.Source, err)
	}
	return e, nil
}

var entryColumns = []string{"id", "source", "output", "latitude", "longitude", "lat_ref", "lon_ref", "bytes_in", "bytes_out", "created_at"}

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var (
		e      Entry
		output sql.NullString
		nanos  int64
	)
	if err := row.Scan(&e.ID, &e.Source, &output, &e.Latitude, &e.Longitude, &e.LatRef, &e.LonRef, &e.BytesIn, &e.BytesOut, &nanos); err != nil {
		return Entry{}, err
	}
	e.Output = output.String
	e.CreatedAt = time.Unix(0, nanos).UTC()
	return e, nil
}

// List returns the newest entries first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	sqlStr, args, err := psql.Select(entryColumns...).
		From("geotags").
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for List: %w", err)
	}
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	sqlStr, args, err := psql.Select(entryColumns...).
		From("geotags").
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to build SQL for Get: %w", err)
	}
	e, err := scanEntry(s.DB.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query catalog entry %s: %w", id, err)
	}
	return e, nil
}
