package baseline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.SpecificationStore = (*FileStore)(nil)

// StoreOption customizes a FileStore.
type StoreOption func(*FileStore)

// WithoutFingerprinting disables content fingerprints on written
// specifications. Loads still verify fingerprints when present.
func WithoutFingerprinting() StoreOption {
	return func(s *FileStore) { s.fingerprint = false }
}

// WithCovariateNaming enables footprint-hash suffixes on specification
// filenames, so baselines collected under different covariates coexist.
func WithCovariateNaming() StoreOption {
	return func(s *FileStore) { s.covariateNaming = true }
}

// FileStore persists specifications as fingerprinted YAML files in a
// directory. Filenames derive deterministically from the use-case
// identifier, so re-runs against an unchanged configuration overwrite the
// same file. Loads are cached by content hash; concurrent loads of the
// same content parse it once.
type FileStore struct {
	dir             string
	fingerprint     bool
	covariateNaming bool

	// cache stores parsed specifications indexed by SHA-256 of the raw
	// file bytes. Cached specifications MUST NOT be mutated.
	cache   map[string]*domain.Specification
	cacheMu sync.RWMutex

	// sf prevents duplicate parsing when multiple goroutines load the
	// same content simultaneously.
	sf singleflight.Group
}

// NewFileStore creates a store rooted at dir. Fingerprinting is enabled
// by default.
func NewFileStore(dir string, opts ...StoreOption) *FileStore {
	s := &FileStore{
		dir:         dir,
		fingerprint: true,
		cache:       make(map[string]*domain.Specification),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the specification to its deterministic path and returns
// that path.
func (s *FileStore) Save(ctx context.Context, spec *domain.Specification) (string, error) {
	data, _, err := Marshal(spec, s.fingerprint)
	if err != nil {
		return "", err
	}

	var footprintHash string
	if s.covariateNaming {
		footprintHash = FootprintHash(spec.Footprint)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create specification directory: %w", err)
	}

	path := filepath.Join(s.dir, FileName(spec.UseCaseID, footprintHash))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write specification: %w", err)
	}
	return path, nil
}

// Load reloads the specification stored under the use case's plain
// (non-covariate) filename.
func (s *FileStore) Load(ctx context.Context, useCaseID string) (*domain.Specification, error) {
	return s.LoadFile(ctx, filepath.Join(s.dir, FileName(useCaseID, "")))
}

// LoadFile reloads a specification from an explicit path, verifying its
// fingerprint when present. The returned specification is a pointer to a
// cached instance and MUST NOT be mutated.
func (s *FileStore) LoadFile(ctx context.Context, path string) (*domain.Specification, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read specification: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	v, err, _ := s.sf.Do(hash, func() (any, error) {
		// Check the cache inside singleflight to handle the race between
		// cache check and group execution.
		if spec, ok := s.getCached(hash); ok {
			return spec, nil
		}

		spec, err := Unmarshal(data, cleanPath)
		if err != nil {
			return nil, err
		}

		s.cacheMu.Lock()
		s.cache[hash] = spec
		s.cacheMu.Unlock()
		return spec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Specification), nil
}

func (s *FileStore) getCached(hash string) (*domain.Specification, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	spec, ok := s.cache[hash]
	return spec, ok
}
