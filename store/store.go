// Package store is a file-backed JSON document store.
//
// The document is a single JSON object whose keys are resource names and whose
// values are arrays of records, the layout used by json-server's db.json.
// Every operation reads the file, and writes go through a temporary file and a
// rename. An in-process mutex plus an advisory file lock serialize access, so
// several gateway processes may share one document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

var (
	// ErrResourceNotFound indicates the document has no collection with that name.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrRecordNotFound indicates the collection has no record with that id.
	ErrRecordNotFound = errors.New("record not found")
)

// IDKey is the record key holding the identifier.
const IDKey = "id"

const lockRetryDelay = 10 * time.Millisecond

// Record is one JSON object in a collection.
type Record map[string]any

// ID returns the record identifier as a string, or "" if it has none.
func (r Record) ID() string {
	v, ok := r[IDKey]
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		// json-server documents often carry numeric ids.
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// export is the copy handed to callers: the id, when present, is always its string form.
func (r Record) export() Record {
	out := r.clone()
	if id := r.ID(); id != "" {
		out[IDKey] = id
	}
	return out
}

type document map[string][]Record

// Store provides serialized access to the document at a path.
type Store struct {
	mu    sync.Mutex
	path  string
	flock *flock.Flock
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid generator used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Open returns a Store for path. The file is created if absent, and every
// name in collections is guaranteed to exist as an (possibly empty) array.
func Open(path string, collections []string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	s := &Store{
		path:  path,
		flock: flock.New(path + ".lock"),
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}

	err := s.update(context.Background(), func(doc document) error {
		for _, name := range collections {
			if _, ok := doc[name]; !ok {
				doc[name] = []Record{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Resources returns the collection names in the document, sorted.
func (s *Store) Resources(ctx context.Context) ([]string, error) {
	var names []string
	err := s.view(ctx, func(doc document) error {
		for name := range doc {
			names = append(names, name)
		}
		return nil
	})
	sort.Strings(names)
	return names, err
}

// List returns every record in the collection, in document order.
func (s *Store) List(ctx context.Context, resource string) ([]Record, error) {
	var out []Record
	err := s.view(ctx, func(doc document) error {
		coll, ok := doc[resource]
		if !ok {
			return fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
		}
		out = make([]Record, len(coll))
		for i, r := range coll {
			out[i] = r.export()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, resource, id string) (Record, error) {
	var out Record
	err := s.view(ctx, func(doc document) error {
		coll, i, err := find(doc, resource, id)
		if err != nil {
			return err
		}
		out = coll[i].export()
		return nil
	})
	return out, err
}

// Create appends rec to the collection under a newly generated id.
// Any id supplied in rec is ignored.
func (s *Store) Create(ctx context.Context, resource string, rec Record) (Record, error) {
	var out Record
	err := s.update(ctx, func(doc document) error {
		coll, ok := doc[resource]
		if !ok {
			return fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
		}
		out = rec.clone()
		out[IDKey] = s.newID()
		doc[resource] = append(coll, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.clone(), nil
}

// Replace swaps the record with the given id for rec, keeping the id.
func (s *Store) Replace(ctx context.Context, resource, id string, rec Record) (Record, error) {
	return s.modify(ctx, resource, id, func(old Record) Record {
		out := rec.clone()
		out[IDKey] = old[IDKey]
		return out
	})
}

// Patch merges the keys of rec onto the record with the given id, keeping the id.
func (s *Store) Patch(ctx context.Context, resource, id string, rec Record) (Record, error) {
	return s.modify(ctx, resource, id, func(old Record) Record {
		out := old.clone()
		for k, v := range rec {
			if k == IDKey {
				continue
			}
			out[k] = v
		}
		return out
	})
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, resource, id string) error {
	return s.update(ctx, func(doc document) error {
		coll, i, err := find(doc, resource, id)
		if err != nil {
			return err
		}
		doc[resource] = append(coll[:i:i], coll[i+1:]...)
		return nil
	})
}

func (s *Store) modify(ctx context.Context, resource, id string, fn func(Record) Record) (Record, error) {
	var out Record
	err := s.update(ctx, func(doc document) error {
		coll, i, err := find(doc, resource, id)
		if err != nil {
			return err
		}
		coll[i] = fn(coll[i])
		out = coll[i].export()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func find(doc document, resource, id string) ([]Record, int, error) {
	coll, ok := doc[resource]
	if !ok {
		return nil, -1, fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
	}
	for i, r := range coll {
		if r.ID() == id {
			return coll, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, resource, id)
}

// view runs fn over the document under a shared lock.
func (s *Store) view(ctx context.Context, fn func(document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.flock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("locking document: %w", err)
	}
	defer s.flock.Unlock() //nolint:errcheck // released on close regardless

	doc, err := s.loadLocked()
	if err != nil {
		return err
	}
	return fn(doc)
}

// update runs fn over the document under an exclusive lock and saves it if fn succeeds.
func (s *Store) update(ctx context.Context, fn func(document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.flock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("locking document: %w", err)
	}
	defer s.flock.Unlock() //nolint:errcheck // released on close regardless

	doc, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.saveLocked(doc)
}

// loadLocked reads the document (caller must hold the locks). A missing file is an empty document.
func (s *Store) loadLocked() (document, error) {
	data, err := os.ReadFile(s.path) //nolint:gosec // G304: path from configuration
	if err != nil {
		if os.IsNotExist(err) {
			return document{}, nil
		}
		return nil, fmt.Errorf("reading document: %w", err)
	}
	doc := document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	for name, coll := range doc {
		if coll == nil {
			doc[name] = []Record{}
		}
	}
	return doc, nil
}

// saveLocked writes the document (caller must hold the locks).
func (s *Store) saveLocked(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}
