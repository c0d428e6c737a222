// Package assets stores downloaded key-moment animations. Every extraction
// writes into its own batch directory, one file per detail position, and
// the store keeps only the most recent batches.
package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	// Ext is the extension every stored asset gets.
	Ext = ".gif"

	// DefaultRetain is the number of committed batches kept on disk.
	DefaultRetain = 8
)

var (
	ErrBatchNotFound = errors.New("asset batch not found")
	ErrBatchClosed   = errors.New("asset batch already committed or discarded")
)

// Store is a directory of batch directories holding position-named GIFs.
type Store struct {
	dir    string
	retain int

	mu        sync.Mutex
	active    map[string]bool
	committed []string // oldest first
}

// File describes one stored asset.
type File struct {
	Position int    `json:"position"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MIME     string `json:"mime"`
}

// ReadError describes a file in a batch that could not be inspected.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// MarshalJSON encodes the error as its message.
func (e ReadError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"filename": e.Filename,
		"error":    e.Err.Error(),
	})
}

// ListResult holds the assets of one batch plus any per-file errors.
type ListResult struct {
	Batch  string      `json:"batch"`
	Files  []File      `json:"files"`
	Errors []ReadError `json:"errors,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithRetain sets how many committed batches are kept.
func WithRetain(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retain = n
		}
	}
}

// NewStore creates a store rooted at dir, creating the directory if needed.
// Batches left by earlier runs count as committed, oldest first by
// modification time.
func NewStore(dir string, opts ...Option) (*Store, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}

	s := &Store{
		dir:    dir,
		retain: DefaultRetain,
		active: map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}

	committed, err := s.scanBatches()
	if err != nil {
		return nil, err
	}
	s.committed = committed

	return s, nil
}

// scanBatches returns the batch directories already on disk, oldest first.
func (s *Store) scanBatches() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset directory: %w", err)
	}

	type found struct {
		id      string
		modTime int64
	}
	var batches []found
	for _, entry := range entries {
		if !entry.IsDir() || !validBatchID(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		batches = append(batches, found{id: entry.Name(), modTime: info.ModTime().UnixNano()})
	}

	sort.Slice(batches, func(i, j int) bool {
		if batches[i].modTime != batches[j].modTime {
			return batches[i].modTime < batches[j].modTime
		}
		return batches[i].id < batches[j].id
	})

	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.id)
	}
	return ids, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Latest returns the most recently committed batch, or "" if there is none.
func (s *Store) Latest() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.committed) == 0 {
		return ""
	}
	return s.committed[len(s.committed)-1]
}

// Batches returns the committed batches, newest first.
func (s *Store) Batches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.committed))
	for i := len(s.committed) - 1; i >= 0; i-- {
		out = append(out, s.committed[i])
	}
	return out
}

// Begin opens a new, empty batch. It must be finished with Commit or
// Discard.
func (s *Store) Begin() (*Batch, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.dir, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}

	s.mu.Lock()
	s.active[id] = true
	s.mu.Unlock()

	return &Batch{store: s, id: id, dir: dir}, nil
}

// Path returns the file path for position in batch.
func (s *Store) Path(batch string, position int) (string, error) {
	if !validBatchID(batch) {
		return "", ErrBatchNotFound
	}
	return positionPath(filepath.Join(s.dir, batch), position), nil
}

// Open returns the stored bytes for position in batch. A missing asset
// returns (nil, nil).
func (s *Store) Open(batch string, position int) ([]byte, error) {
	path, err := s.Path(batch, position)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return data, nil
}

// List returns the assets of batch ordered by position. Files that cannot
// be inspected are collected in the result's Errors.
func (s *Store) List(batch string) (*ListResult, error) {
	if !validBatchID(batch) {
		return nil, ErrBatchNotFound
	}

	dir := filepath.Join(s.dir, batch)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to read batch directory: %w", err)
	}

	result := &ListResult{Batch: batch}
	for _, entry := range entries {
		position, ok := positionOf(entry)
		if !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: entry.Name(), Err: err})
			continue
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: entry.Name(), Err: err})
			continue
		}

		result.Files = append(result.Files, File{
			Position: position,
			Path:     path,
			Size:     info.Size(),
			MIME:     mtype.String(),
		})
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Position < result.Files[j].Position
	})
	return result, nil
}

// Batch is the set of assets written by one extraction.
type Batch struct {
	store *Store
	id    string
	dir   string
}

// ID returns the batch identifier.
func (b *Batch) ID() string {
	return b.id
}

// Dir returns the batch directory.
func (b *Batch) Dir() string {
	return b.dir
}

// Path returns the file path for the asset at position.
func (b *Batch) Path(position int) string {
	return positionPath(b.dir, position)
}

// Save writes data as the asset for position and returns its description.
// The bytes are written as received; MIME is whatever they sniff as.
func (b *Batch) Save(position int, data []byte) (*File, error) {
	if position < 0 {
		return nil, fmt.Errorf("invalid asset position %d", position)
	}

	path := b.Path(position)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write asset file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close asset file: %w", err)
	}

	return &File{
		Position: position,
		Path:     path,
		Size:     int64(len(data)),
		MIME:     mimetype.Detect(data).String(),
	}, nil
}

// Commit makes the batch the latest one and removes committed batches
// beyond the retention limit. Batches still being written are never
// removed.
func (b *Batch) Commit() error {
	s := b.store

	s.mu.Lock()
	if !s.active[b.id] {
		s.mu.Unlock()
		return ErrBatchClosed
	}
	delete(s.active, b.id)
	s.committed = append(s.committed, b.id)

	var stale []string
	for len(s.committed) > s.retain {
		stale = append(stale, s.committed[0])
		s.committed = s.committed[1:]
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range stale {
		if err := os.RemoveAll(filepath.Join(s.dir, id)); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove batch %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Discard removes the batch and everything written to it.
func (b *Batch) Discard() error {
	s := b.store

	s.mu.Lock()
	if !s.active[b.id] {
		s.mu.Unlock()
		return ErrBatchClosed
	}
	delete(s.active, b.id)
	s.mu.Unlock()

	if err := os.RemoveAll(b.dir); err != nil {
		return fmt.Errorf("failed to remove batch %s: %w", b.id, err)
	}
	return nil
}

func positionPath(dir string, position int) string {
	return filepath.Join(dir, strconv.Itoa(position)+Ext)
}

// validBatchID accepts only canonical UUIDs, which also keeps batch names
// from escaping the store directory.
func validBatchID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

// positionOf parses "<n>.gif" file names.
func positionOf(entry os.DirEntry) (int, bool) {
	if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(entry.Name(), Ext))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
