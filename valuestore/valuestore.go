// Package valuestore persists attribute values in a flat file of
// length-prefixed records.
package valuestore

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// A PersistenceError records a failed operation on the value file.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("valuestore: %s %s: %v", e.Op, e.Path, e.Err)
}

// Cause returns the underlying error.
func (e *PersistenceError) Cause() error { return e.Err }

// DefaultCacheSize is the number of values Get keeps in memory.
const DefaultCacheSize = 128

// An Option configures Open.
type Option func(*Store)

// CacheSize sets the number of values kept by the read cache.
func CacheSize(n int) Option {
	return func(s *Store) { s.cacheSize = n }
}

// A Store is a value file. It is safe for concurrent use within one
// process.
type Store struct {
	path      string
	cacheSize int

	mu    sync.Mutex
	cache *lru.Cache // handle → []byte
	stamp fileStamp  // file state the cache was filled from
}

type fileStamp struct {
	size int64
	mod  int64 // UnixNano
}

// Open returns the store backed by the file at path. The file need not
// exist yet.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize <= 0 {
		s.cacheSize = DefaultCacheSize
	}
	c, err := lru.New(s.cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "valuestore: cache")
	}
	s.cache = c
	return s, nil
}

// Path returns the file the store is backed by.
func (s *Store) Path() string { return s.path }

// Records returns every record in the file, in file order.
func (s *Store) Records() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.read("records")
	if err != nil {
		return nil, err
	}
	return Decode(b), nil
}

// Load calls fn for every record in the file, in file order.
func (s *Store) Load(fn func(h uint16, v []byte)) error {
	rr, err := s.Records()
	if err != nil {
		return err
	}
	for _, r := range rr {
		fn(r.Handle, r.Value)
	}
	return nil
}

// Get returns the value stored for handle h. Values are served from
// the cache until the file changes on disk.
func (s *Store) Get(h uint16) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validate(); err != nil {
		return nil, false, err
	}
	if v, ok := s.cache.Get(h); ok {
		if v == nil {
			return nil, false, nil
		}
		return copyOf(v.([]byte)), true, nil
	}
	b, err := s.read("get")
	if err != nil {
		return nil, false, err
	}
	v, ok := find(b, h)
	if !ok {
		s.cache.Add(h, nil)
		return nil, false, nil
	}
	s.cache.Add(h, v)
	return copyOf(v), true, nil
}

// Put stores v as the value of handle h, replacing any earlier value.
// The file is rewritten through a temporary file and a rename.
func (s *Store) Put(h uint16, v []byte) error {
	if len(v) > MaxValueLen {
		return &PersistenceError{Op: "put", Path: s.path, Err: errors.Errorf("value of %d bytes exceeds %d", len(v), MaxValueLen)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.read("put")
	if err != nil {
		return err
	}
	b = replace(b, Record{Handle: h, Value: v})

	tmp, err := ioutil.TempFile(filepath.Dir(s.path), filepath.Base(s.path)+".tmp")
	if err != nil {
		return &PersistenceError{Op: "put", Path: s.path, Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return &PersistenceError{Op: "put", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "put", Path: s.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return &PersistenceError{Op: "put", Path: s.path, Err: err}
	}
	s.cache.Purge()
	s.cache.Add(h, copyOf(v))
	s.stamp, _ = s.statFile()
	return nil
}

func (s *Store) read(op string) ([]byte, error) {
	b, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: op, Path: s.path, Err: err}
	}
	return b, nil
}

// validate drops the cache if the file changed since it was filled.
func (s *Store) validate() error {
	st, err := s.statFile()
	if err != nil {
		return &PersistenceError{Op: "stat", Path: s.path, Err: err}
	}
	if st != s.stamp {
		s.cache.Purge()
		s.stamp = st
	}
	return nil
}

func (s *Store) statFile() (fileStamp, error) {
	fi, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return fileStamp{}, nil
	}
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{size: fi.Size(), mod: fi.ModTime().UnixNano()}, nil
}

func copyOf(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
