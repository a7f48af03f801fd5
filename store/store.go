// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package store keeps the history of readouts in a sqlite database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/maruel/go-mlx90640/thermal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Record is a readout as stored.
type Record struct {
	Session string `json:"session"`
	thermal.Readout
}

// Store is a readout database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database at path and brings its schema up to
// date.
//
// logger can be nil.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writes anyway and an in-memory database is per
	// connection.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: logger}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}
	return s, nil
}

// NewSession returns a new session identifier.
func NewSession() string {
	return uuid.NewString()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies all pending migrations.
func (s *Store) Migrate() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func (s *Store) Version() (uint, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err == nil && dirty {
		err = fmt.Errorf("schema version %d is dirty", v)
	}
	return v, err
}

// Insert records a readout.
func (s *Store) Insert(ctx context.Context, session string, r *thermal.Readout) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readouts (session, seq, time_ns, t_min, t_max, t_center, vdd, ta, mean, stddev, repaired, subpages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session, r.Seq, r.Time.UnixNano(), r.Min, r.Max, r.Center, r.Vdd, r.Ta, r.Mean, r.StdDev, r.Repaired, r.SubPages)
	if err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	return nil
}

// Recent returns the n most recent readouts, oldest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session, seq, time_ns, t_min, t_max, t_center, vdd, ta, mean, stddev, repaired, subpages
		FROM readouts ORDER BY time_ns DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ns int64
		var tMin, tMax, tCenter float64
		if err := rows.Scan(&r.Session, &r.Seq, &ns, &tMin, &tMax, &tCenter, &r.Vdd, &r.Ta, &r.Mean, &r.StdDev, &r.Repaired, &r.SubPages); err != nil {
			return nil, err
		}
		r.Time = time.Unix(0, ns).UTC()
		r.Min = float32(tMin)
		r.Max = float32(tMax)
		r.Center = float32(tCenter)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Count returns the number of readouts recorded in session, or in total if
// session is empty.
func (s *Store) Count(ctx context.Context, session string) (int, error) {
	var n int
	var err error
	if session == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readouts`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readouts WHERE session = ?`, session).Scan(&n)
	}
	return n, err
}

// Private details.

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		return err
	}
	return s.Migrate()
}

// newMigrate returns a migrate instance over the embedded migrations.
//
// It is not closed since that would close the database.
func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{logger: s.logger}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf("migrate: "+format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
