// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/VernAnge/recommendations-app/internal/recommend"
)

// ErrNotFound is returned when no stored snapshot matches a name/version.
var ErrNotFound = errors.New("snapshot not found")

const fileExt = ".gob.gz"

// SnapshotMetadata describes a stored snapshot.
type SnapshotMetadata struct {
	// Name groups snapshot versions (for example "training").
	Name string `json:"name"`

	// Version is the engine snapshot version.
	Version int `json:"version"`

	// BuiltAt is when the snapshot was built.
	BuiltAt time.Time `json:"built_at"`

	// SavedAt is when the snapshot was written.
	SavedAt time.Time `json:"saved_at"`

	Records int `json:"records"`
	Skipped int `json:"skipped"`
	Users   int `json:"users"`
	Items   int `json:"items"`

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`

	BuildDurationMS      int64 `json:"build_duration_ms"`
	SimilarityDurationMS int64 `json:"similarity_duration_ms"`
}

// snapshotState is the gob payload of a snapshot file.
type snapshotState struct {
	Training   recommend.MatrixState
	Similarity recommend.SimilarityState
}

// storedFile is the on-disk format.
type storedFile struct {
	Metadata       SnapshotMetadata
	CompressedData []byte
}

// Store persists engine snapshots as versioned files
// named {name}_v{version}.gob.gz. It is safe for concurrent use.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// versions holds every version on disk per name, ascending.
	versions map[string][]int
}

// NewStore opens (creating if needed) a snapshot store at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for snapshot storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string][]int),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing snapshots: %w", err)
	}
	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.baseDir
}

func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseFilename(entry.Name())
		if !ok {
			continue
		}
		s.versions[name] = append(s.versions[name], version)
	}
	for name := range s.versions {
		sort.Ints(s.versions[name])
	}
	return nil
}

// parseFilename splits "training_v12.gob.gz" into ("training", 12).
func parseFilename(filename string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(filename, fileExt)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx < 1 {
		return "", 0, false
	}
	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version < 1 {
		return "", 0, false
	}
	return base[:idx], version, true
}

// Save writes snap under name. The file is written to a temporary path and
// renamed into place, so readers never observe a partial snapshot.
func (s *Store) Save(ctx context.Context, name string, snap *recommend.Snapshot) (*SnapshotMetadata, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("save snapshot: %w", recommend.ErrNoSnapshot)
	}
	if snap.Version < 1 {
		return nil, fmt.Errorf("save snapshot: version must be positive, got %d", snap.Version)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := snapshotState{
		Training:   snap.Training.State(),
		Similarity: snap.Similarity.State(),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	rawData := buf.Bytes()
	hash := sha256.Sum256(rawData)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	stats := snap.Stats()
	meta := SnapshotMetadata{
		Name:                 name,
		Version:              snap.Version,
		BuiltAt:              snap.BuiltAt,
		SavedAt:              time.Now().UTC(),
		Records:              stats.Records,
		Skipped:              stats.Skipped,
		Users:                stats.Users,
		Items:                stats.Items,
		Checksum:             hex.EncodeToString(hash[:]),
		SizeBytes:            int64(compressed.Len()),
		BuildDurationMS:      stats.BuildDurationMS,
		SimilarityDurationMS: stats.SimilarityDurationMS,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFile(name, snap.Version, storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return nil, err
	}
	s.addVersion(name, snap.Version)
	return &meta, nil
}

func (s *Store) writeFile(name string, version int, sf storedFile) error {
	final := s.path(name, version)
	tmp, err := os.CreateTemp(s.baseDir, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // no-op after a successful rename

	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot file: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return fmt.Errorf("install snapshot file: %w", err)
	}
	return nil
}

func (s *Store) addVersion(name string, version int) {
	vs := s.versions[name]
	i := sort.SearchInts(vs, version)
	if i < len(vs) && vs[i] == version {
		return
	}
	vs = append(vs, 0)
	copy(vs[i+1:], vs[i:])
	vs[i] = version
	s.versions[name] = vs
}

// Load reads a snapshot by name and version. Version 0 loads the latest.
// The checksum is verified before decoding.
func (s *Store) Load(ctx context.Context, name string, version int) (*recommend.Snapshot, *SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		vs := s.versions[name]
		if len(vs) == 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		version = vs[len(vs)-1]
	}

	sf, err := s.readFile(name, version)
	if err != nil {
		return nil, nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	var state snapshotState
	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(&state); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot: %w", err)
	}

	training, err := recommend.MatrixFromState(&state.Training)
	if err != nil {
		return nil, nil, fmt.Errorf("restore training matrix: %w", err)
	}
	sim, err := recommend.SimilarityFromState(&state.Similarity)
	if err != nil {
		return nil, nil, fmt.Errorf("restore similarity matrix: %w", err)
	}
	snap, err := recommend.NewSnapshot(training, sim, sf.Metadata.Version, sf.Metadata.BuiltAt)
	if err != nil {
		return nil, nil, err
	}
	snap.BuildDuration = time.Duration(sf.Metadata.BuildDurationMS) * time.Millisecond
	snap.SimilarityDuration = time.Duration(sf.Metadata.SimilarityDurationMS) * time.Millisecond

	meta := sf.Metadata
	return snap, &meta, nil
}

func (s *Store) readFile(name string, version int) (*storedFile, error) {
	f, err := os.Open(s.path(name, version)) //nolint:gosec // path is built from a validated name
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s v%d", ErrNotFound, name, version)
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return &sf, nil
}

// LatestVersion returns the newest stored version for name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vs := s.versions[name]
	if len(vs) == 0 {
		return 0, false
	}
	return vs[len(vs)-1], true
}

// ListVersions returns the stored versions for name, ascending.
func (s *Store) ListVersions(name string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int, len(s.versions[name]))
	copy(out, s.versions[name])
	return out
}

// List returns metadata of the latest version of every stored name,
// sorted by name. Unreadable files are skipped.
func (s *Store) List(ctx context.Context) ([]SnapshotMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SnapshotMetadata, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vs := s.versions[name]
		sf, err := s.readFile(name, vs[len(vs)-1])
		if err != nil {
			continue
		}
		out = append(out, sf.Metadata)
	}
	return out, nil
}

// Delete removes one stored version.
func (s *Store) Delete(_ context.Context, name string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name, version)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s v%d", ErrNotFound, name, version)
		}
		return fmt.Errorf("delete snapshot: %w", err)
	}
	s.removeVersion(name, version)
	return nil
}

// Prune keeps the newest keep versions of name and deletes the rest.
// Returns the number of files removed.
func (s *Store) Prune(_ context.Context, name string, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}
	vs := s.versions[name]
	if len(vs) <= keep {
		return 0, nil
	}

	old := append([]int(nil), vs[:len(vs)-keep]...)
	removed := 0
	var errs []error
	for _, v := range old {
		if err := os.Remove(s.path(name, v)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		s.removeVersion(name, v)
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *Store) removeVersion(name string, version int) {
	vs := s.versions[name]
	i := sort.SearchInts(vs, version)
	if i == len(vs) || vs[i] != version {
		return
	}
	vs = append(vs[:i], vs[i+1:]...)
	if len(vs) == 0 {
		delete(s.versions, name)
		return
	}
	s.versions[name] = vs
}

func (s *Store) path(name string, version int) string {
	return filepath.Join(s.baseDir, name+"_v"+strconv.Itoa(version)+fileExt)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("snapshot name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}
