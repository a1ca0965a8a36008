// Package cache implements the rule cache: a JSON manifest of source file
// fingerprints and recorded outputs per rule, used to skip rules whose
// inputs have not changed.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// fingerprint identifies one source file's content.
type fingerprint struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// entry is the recorded state of one rule.
type entry struct {
	Files   map[string]fingerprint `json:"files"`
	Outputs []string               `json:"outputs"`
}

// Store implements ports.RuleCache backed by a flat JSON manifest file.
type Store struct {
	path string

	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates a rule cache backed by the manifest at path. A missing
// manifest starts the cache empty.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:    filepath.Clean(path),
		entries: make(map[string]entry),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read rule cache manifest")
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return zerr.Wrap(err, "failed to unmarshal rule cache manifest")
	}
	return nil
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal rule cache manifest")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return zerr.Wrap(err, "failed to create rule cache directory")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil { //nolint:gosec // manifest is not sensitive
		return zerr.Wrap(err, "failed to write rule cache manifest")
	}
	return nil
}

// ComputeDelta fingerprints the rule's current sources and classifies each
// against the last committed state. A rule that was never committed reports
// every file as added.
func (s *Store) ComputeDelta(rulePath string, srcPaths []string) (*domain.FileDelta, error) {
	current, err := fingerprintAll(srcPaths)
	if err != nil {
		return nil, zerr.With(err, "rule", rulePath)
	}

	s.mu.RLock()
	previous := s.entries[rulePath].Files
	s.mu.RUnlock()

	delta := &domain.FileDelta{AllFiles: append([]string(nil), srcPaths...)}
	for _, path := range srcPaths {
		prev, known := previous[path]
		switch {
		case !known:
			delta.AddedFiles = append(delta.AddedFiles, path)
		case prev != current[path]:
			delta.ModifiedFiles = append(delta.ModifiedFiles, path)
		default:
			delta.UnchangedFiles = append(delta.UnchangedFiles, path)
		}
	}
	for path := range previous {
		if _, ok := current[path]; !ok {
			delta.RemovedFiles = append(delta.RemovedFiles, path)
		}
	}
	return delta, nil
}

// KnownOutputs returns the outputs recorded for the rule by the last Commit,
// or nil if the rule was never committed.
func (s *Store) KnownOutputs(rulePath string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[rulePath]
	if !ok {
		return nil
	}
	outputs := append([]string(nil), e.Outputs...)
	if outputs == nil {
		outputs = []string{}
	}
	return outputs
}

// Commit records the rule's current source fingerprints and outputs and
// persists the manifest.
func (s *Store) Commit(rulePath string, srcPaths, outputs []string) error {
	files, err := fingerprintAll(srcPaths)
	if err != nil {
		return zerr.With(err, "rule", rulePath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[rulePath] = entry{
		Files:   files,
		Outputs: append([]string(nil), outputs...),
	}
	return s.save()
}

// fingerprintAll hashes the files concurrently, bounded by the CPU count.
func fingerprintAll(paths []string) (map[string]fingerprint, error) {
	prints := make([]fingerprint, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			fp, err := fingerprintFile(path)
			if err != nil {
				return err
			}
			prints[i] = fp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make(map[string]fingerprint, len(paths))
	for i, path := range paths {
		files[path] = prints[i]
	}
	return files, nil
}

func fingerprintFile(path string) (fingerprint, error) {
	f, err := os.Open(path) //nolint:gosec // source path resolved by the engine
	if err != nil {
		return fingerprint{}, zerr.With(zerr.Wrap(err, "failed to open source"), "path", path)
	}
	defer f.Close() //nolint:errcheck // best effort close

	info, err := f.Stat()
	if err != nil {
		return fingerprint{}, zerr.With(zerr.Wrap(err, "failed to stat source"), "path", path)
	}

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return fingerprint{}, zerr.With(zerr.Wrap(err, "failed to hash source"), "path", path)
	}
	return fingerprint{
		Hash: fmt.Sprintf("%016x", hasher.Sum64()),
		Size: info.Size(),
	}, nil
}
