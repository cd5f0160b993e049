package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/pkg/foursquare"
	"github.com/sells-group/venuecluster/pkg/geocode"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db         *sql.DB
	geocodeTTL time.Duration
	venueTTL   time.Duration
	now        func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithGeocodeTTL sets how long geocode results stay valid. Zero keeps them forever.
func WithGeocodeTTL(d time.Duration) Option {
	return func(s *SQLiteStore) { s.geocodeTTL = d }
}

// WithVenueTTL sets how long venue lists stay valid. Zero keeps them forever.
func WithVenueTTL(d time.Duration) Option {
	return func(s *SQLiteStore) { s.venueTTL = d }
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	query_hash TEXT PRIMARY KEY,
	result     TEXT NOT NULL,
	cached_at  INTEGER NOT NULL,
	expires_at INTEGER
);

CREATE TABLE IF NOT EXISTS venue_cache (
	query_key  TEXT PRIMARY KEY,
	venues     TEXT NOT NULL,
	cached_at  INTEGER NOT NULL,
	expires_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON geocode_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_venue_cache_expires_at ON venue_cache(expires_at);
`

// Migrate creates the schema if needed.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) expiry(ttl time.Duration) sql.NullInt64 {
	if ttl <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: s.now().Add(ttl).Unix(), Valid: true}
}

// GetGeocode implements geocode.Cache.
func (s *SQLiteStore) GetGeocode(ctx context.Context, key string) (*geocode.Result, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM geocode_cache WHERE query_hash = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, s.now().Unix(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get geocode")
	}

	var r geocode.Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: decode geocode")
	}
	r.Source = "cache"
	return &r, true, nil
}

// PutGeocode implements geocode.Cache.
func (s *SQLiteStore) PutGeocode(ctx context.Context, key string, r *geocode.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode geocode")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (query_hash, result, cached_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (query_hash) DO UPDATE SET
			result = excluded.result,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		key, string(data), s.now().Unix(), s.expiry(s.geocodeTTL),
	)
	return eris.Wrap(err, "sqlite: put geocode")
}

// GetVenues implements foursquare.Cache.
func (s *SQLiteStore) GetVenues(ctx context.Context, key string) ([]foursquare.Venue, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT venues FROM venue_cache WHERE query_key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, s.now().Unix(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get venues")
	}

	var venues []foursquare.Venue
	if err := json.Unmarshal([]byte(raw), &venues); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: decode venues")
	}
	return venues, true, nil
}

// PutVenues implements foursquare.Cache.
func (s *SQLiteStore) PutVenues(ctx context.Context, key string, venues []foursquare.Venue) error {
	if venues == nil {
		venues = []foursquare.Venue{}
	}
	data, err := json.Marshal(venues)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode venues")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO venue_cache (query_key, venues, cached_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (query_key) DO UPDATE SET
			venues = excluded.venues,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		key, string(data), s.now().Unix(), s.expiry(s.venueTTL),
	)
	return eris.Wrap(err, "sqlite: put venues")
}

// DeleteExpired removes expired cache rows from both caches.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	now := s.now().Unix()
	var total int64
	for _, table := range []string{"geocode_cache", "venue_cache"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at IS NOT NULL AND expires_at <= ?`, now)
		if err != nil {
			return int(total), eris.Wrapf(err, "sqlite: delete expired %s", table)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return int(total), nil
}

// SaveRun inserts or replaces a run.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		return eris.New("sqlite: run without id")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode run")
	}
	created := run.StartedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, result, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = excluded.status, result = excluded.result`,
		run.ID, string(run.Status), string(data), created.UnixNano(),
	)
	return eris.Wrapf(err, "sqlite: save run %s", run.ID)
}

// GetRun loads a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	return s.scanRun(s.db.QueryRowContext(ctx, `SELECT result FROM runs WHERE id = ?`, id), id)
}

// LatestCompleteRun loads the most recently started run that completed.
// Failed runs are skipped.
func (s *SQLiteStore) LatestCompleteRun(ctx context.Context) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM runs WHERE status = ? ORDER BY created_at DESC LIMIT 1`,
		string(model.RunStatusComplete))
	return s.scanRun(row, "latest complete")
}

func (s *SQLiteStore) scanRun(row *sql.Row, label string) (*model.Run, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "run %s", label)
		}
		return nil, eris.Wrapf(err, "sqlite: get run %s", label)
	}
	var run model.Run
	if err := json.Unmarshal([]byte(raw), &run); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode run %s", label)
	}
	return &run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, created_at FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []RunInfo
	for rows.Next() {
		var info RunInfo
		var status string
		var created int64
		if err := rows.Scan(&info.ID, &status, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		info.Status = model.RunStatus(status)
		info.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, info)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
