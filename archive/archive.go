/*
Copyright © 2024 the uclchemtools authors.
This file is part of uclchemtools.

uclchemtools is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

uclchemtools is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with uclchemtools.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package archive stores the abundances, reference tables and rate tables
// of many simulation runs in one single-file sqlite database. All runs in
// an archive share one abundance column schema and one species lookup
// table, so that they can be compared directly.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/uclchemtools"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// ErrNotFound is returned when a run or dataset is not in the archive.
var ErrNotFound = errors.New("archive: not found")

// ErrLocked is returned when the writer lock of an archive cannot be
// acquired before the lock timeout.
var ErrLocked = errors.New("archive: locked by another writer")

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS index_species_lookup (
	name TEXT PRIMARY KEY,
	idx INTEGER NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	rows INTEGER NOT NULL,
	created TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS datasets (
	path TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS datasets_run ON datasets(run_id);
`

// Archive is an open archive. It must be closed after use; Update and
// View do this automatically.
type Archive struct {
	path     string
	db       *sql.DB
	writable bool
	lock     string

	cfg   options
	cache *requestcache.Cache
}

type options struct {
	log         logrus.FieldLogger
	lockTimeout time.Duration
	cacheSize   int
}

// Option configures how an archive is opened.
type Option func(*options)

// WithLog sets the logger of the archive.
func WithLog(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithLockTimeout sets how long to wait for the writer lock. The default
// is one minute.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithCacheSize sets the number of decoded datasets kept in memory by a
// reader. The default is 100.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// Open opens the archive at path. If writable is true, the archive is
// created if it does not exist and an exclusive writer lock is held
// until Close. Otherwise the archive must exist.
func Open(ctx context.Context, path string, writable bool, opts ...Option) (*Archive, error) {
	a := &Archive{
		path:     path,
		writable: writable,
		cfg: options{
			log:         logrus.StandardLogger(),
			lockTimeout: time.Minute,
			cacheSize:   100,
		},
	}
	for _, o := range opts {
		o(&a.cfg)
	}
	if !writable {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
	} else if err := a.acquire(ctx); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		a.release()
		return nil, fmt.Errorf("archive: opening %s: %w", path, err)
	}
	a.db = db
	if writable {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, schema); err != nil {
			a.Close()
			return nil, fmt.Errorf("archive: creating schema: %w", err)
		}
	}
	a.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		return a.dataset(ctx, request.(string))
	}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(a.cfg.cacheSize))
	return a, nil
}

// acquire creates the lock file, retrying while another writer holds it.
func (a *Archive) acquire(ctx context.Context) error {
	lock := a.path + ".lock"
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = a.cfg.lockTimeout
	err := backoff.RetryNotify(
		func() error {
			f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
			if os.IsExist(err) {
				if pid, ok := staleLock(lock); ok {
					a.cfg.log.WithFields(logrus.Fields{"archive": a.path, "pid": pid}).Warn("removing writer lock left by a process that no longer exists")
					os.Remove(lock)
					f, err = os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(f, "%d\n", os.Getpid())
			return f.Close()
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			a.cfg.log.WithField("archive", a.path).Debugf("waiting for writer lock: %v", err)
		},
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", ErrLocked, a.path)
	}
	a.lock = lock
	return nil
}

// staleLock returns the pid recorded in lock and whether that process
// has exited. A lock whose owner cannot be read is treated as live.
func staleLock(lock string) (int, bool) {
	b, err := os.ReadFile(lock)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return pid, false
	}
	return pid, processGone(pid)
}

func (a *Archive) release() {
	if a.lock != "" {
		os.Remove(a.lock)
		a.lock = ""
	}
}

// Close closes the database and releases the writer lock.
func (a *Archive) Close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
	}
	a.release()
	return err
}

// Path returns the location of the archive file.
func (a *Archive) Path() string { return a.path }

// Update opens the archive at path for writing, calls fn, and closes the
// archive whether or not fn succeeds.
func Update(ctx context.Context, path string, fn func(*Archive) error, opts ...Option) (err error) {
	a, err := Open(ctx, path, true, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return fn(a)
}

// View opens the archive at path for reading, calls fn, and closes the
// archive whether or not fn succeeds. Lazily loaded tables must be used
// within fn.
func View(ctx context.Context, path string, fn func(*Archive) error, opts ...Option) (err error) {
	a, err := Open(ctx, path, false, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return fn(a)
}

func (a *Archive) checkWritable() error {
	if !a.writable {
		return fmt.Errorf("archive: %s is open read-only", a.path)
	}
	return nil
}

// quote quotes an sqlite identifier.
func quote(name string) string {
	return `"` + strings.Replace(name, `"`, `""`, -1) + `"`
}

// RunInfo describes a stored run.
type RunInfo struct {
	ID      string
	Source  string
	Rows    int
	Created time.Time
}

// Runs returns the stored runs in order of storage.
func (a *Archive) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT run_id, source, rows, created FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("archive: listing runs: %w", err)
	}
	defer rows.Close()
	var o []RunInfo
	for rows.Next() {
		var r RunInfo
		var created string
		if err := rows.Scan(&r.ID, &r.Source, &r.Rows, &created); err != nil {
			return nil, fmt.Errorf("archive: listing runs: %w", err)
		}
		r.Created, _ = time.Parse(time.RFC3339, created)
		o = append(o, r)
	}
	return o, rows.Err()
}

// HasRun returns whether a run with the given id is stored.
func (a *Archive) HasRun(ctx context.Context, id string) (bool, error) {
	var n int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("archive: %w", err)
	}
	return n > 0, nil
}

// Datasets returns the paths of the datasets of a run.
func (a *Archive) Datasets(ctx context.Context, runID string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT path FROM datasets WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("archive: listing datasets: %w", err)
	}
	defer rows.Close()
	var o []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		o = append(o, p)
	}
	return o, rows.Err()
}

// dataset reads and decodes one stored table.
func (a *Archive) dataset(ctx context.Context, path string) (*uclchemtools.Table, error) {
	var payload []byte
	err := a.db.QueryRowContext(ctx, `SELECT payload FROM datasets WHERE path = ?`, path).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: dataset %s", ErrNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("archive: reading %s: %w", path, err)
	}
	t, err := decodeTable(payload)
	if err != nil {
		return nil, fmt.Errorf("archive: decoding %s: %w", path, err)
	}
	return t, nil
}

// Dataset returns a stored table through the reader cache. The returned
// table is shared with other callers and should be copied before it is
// modified.
func (a *Archive) Dataset(ctx context.Context, path string) (*uclchemtools.Table, error) {
	r, err := a.cache.NewRequest(ctx, path, path).Result()
	if err != nil {
		return nil, err
	}
	return r.(*uclchemtools.Table), nil
}
