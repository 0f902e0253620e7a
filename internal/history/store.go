// Package history persists run results locally.
//
// The store is a single bbolt file with one bucket of JSON-encoded
// RunResult values keyed by "<startedAt fixed-width RFC 3339>/<run id>".
// The timestamp prefix makes bbolt's natural key order chronological, so
// listing recent runs is a reverse cursor walk with no index.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/shinji-kodama/cicada/internal/model"
)

// bucketRuns holds run results. Key: startedAt/ID, value: RunResult JSON.
const bucketRuns = "runs"

// keyTimeFormat is a fixed-width RFC 3339 layout. The fraction must not
// be trimmed: with variable-width fractions, lexical key order diverges
// from chronological order within a second ("...00.5Z" sorts after
// "...00.51Z").
const keyTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// openTimeout bounds how long Open waits for the file lock held by
// another process.
const openTimeout = 1 * time.Second

// Store is a bbolt-backed run history.
type Store struct {
	db *bbolt.DB
}

// Open creates or opens the history database at path. The runs bucket
// is created up front so every later operation can assume it exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitHistoryError,
			fmt.Sprintf("failed to open history store %s", path), err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, model.WrapCLIError(model.ExitHistoryError,
			"failed to initialize history store", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// key builds the chronological bucket key for a run.
func key(run *model.RunResult) []byte {
	return []byte(run.StartedAt.UTC().Format(keyTimeFormat) + "/" + run.ID)
}

// Save persists a run result.
func (s *Store) Save(run *model.RunResult) error {
	data, err := json.Marshal(run)
	if err != nil {
		return model.WrapCLIError(model.ExitHistoryError,
			fmt.Sprintf("failed to encode run %s", run.ID), err)
	}

	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketRuns)).Put(key(run), data)
	}); err != nil {
		return model.WrapCLIError(model.ExitHistoryError,
			fmt.Sprintf("failed to save run %s", run.ID), err)
	}
	return nil
}

// List returns up to limit runs, newest first. A non-positive limit
// returns everything.
func (s *Store) List(limit int) ([]*model.RunResult, error) {
	var runs []*model.RunResult

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketRuns)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var run model.RunResult
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("corrupt run record %q: %w", k, err)
			}
			runs = append(runs, &run)
		}
		return nil
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitHistoryError,
			"failed to list runs", err)
	}
	return runs, nil
}

// Get returns the run with the given ID, or a not-found error. IDs are
// unique UUIDs, so a suffix scan over the chronological keys suffices.
func (s *Store) Get(id string) (*model.RunResult, error) {
	var found *model.RunResult

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketRuns)).Cursor()
		suffix := []byte("/" + id)
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !bytes.HasSuffix(k, suffix) {
				continue
			}
			var run model.RunResult
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("corrupt run record %q: %w", k, err)
			}
			found = &run
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitHistoryError,
			fmt.Sprintf("failed to read run %s", id), err)
	}
	if found == nil {
		return nil, model.NewCLIError(model.ExitHistoryError,
			fmt.Sprintf("run %s not found in history", id))
	}
	return found, nil
}
