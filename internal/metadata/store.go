// Package metadata persists coin records in a JSON document.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/ashureev/coin-gallery/internal/domain"
	"github.com/moby/sys/atomicwriter"
)

const filePerm = 0o644

// Index maps coin ids to their records.
type Index map[int]domain.CoinRecord

// Get returns the record for id.
func (ix Index) Get(id int) (domain.CoinRecord, error) {
	rec, ok := ix[id]
	if !ok {
		return domain.CoinRecord{}, fmt.Errorf("coin %d: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// Records returns the records sorted by id.
func (ix Index) Records() []domain.CoinRecord {
	records := make([]domain.CoinRecord, 0, len(ix))
	for _, rec := range ix {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Store reads and writes the metadata document at a fixed path.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the JSON file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the metadata document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the metadata document. A missing document is an empty index.
func (s *Store) Load() (Index, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w: %w", s.path, domain.ErrPersistence, err)
	}
	return decode(data)
}

// Save writes idx to disk. The document is written to a temporary file in
// the same directory and renamed over the live file.
func (s *Store) Save(idx Index) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	return s.write(idx)
}

// Update reloads the document, lets fn modify it and saves it if fn reports
// a change. The store stays locked for the whole cycle so concurrent edits
// to different coins are not lost.
func (s *Store) Update(fn func(Index) (bool, error)) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	idx, err := s.Load()
	if err != nil {
		return err
	}
	changed, err := fn(idx)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.write(idx)
}

func (s *Store) lock() (func(), error) {
	s.mu.Lock()
	release, err := lockFile(s.path + ".lock")
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("lock metadata: %w: %w", domain.ErrPersistence, err)
	}
	return func() {
		_ = release()
		s.mu.Unlock()
	}, nil
}

func (s *Store) write(idx Index) error {
	data, err := encode(idx)
	if err != nil {
		return fmt.Errorf("encode metadata: %w: %w", domain.ErrPersistence, err)
	}
	if err := atomicwriter.WriteFile(s.path, data, filePerm); err != nil {
		return fmt.Errorf("write metadata %s: %w: %w", s.path, domain.ErrPersistence, err)
	}
	return nil
}

func decode(data []byte) (Index, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Index{}, nil
	}

	var records []domain.CoinRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptStore, err)
	}

	idx := make(Index, len(records))
	for _, rec := range records {
		if rec.ID < 0 {
			return nil, fmt.Errorf("%w: negative id %d", domain.ErrCorruptStore, rec.ID)
		}
		if _, dup := idx[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", domain.ErrCorruptStore, rec.ID)
		}
		idx[rec.ID] = rec
	}
	return idx, nil
}

func encode(idx Index) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(idx.Records()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
