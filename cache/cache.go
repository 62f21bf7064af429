// Package cache implements the pip package cache shared across pipeline runs.
//
// The cache is a plain directory store keyed by a pure function of the
// operating system identifier and the content hash of the dependency
// manifest. It is strictly a performance optimization: a miss is always
// safe, and entries carry no correctness implications.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Outcome labels for cache resolutions.
const (
	OutcomeHit    = "hit"
	OutcomeMiss   = "miss"
	OutcomeBypass = "bypass"
)

// Resolution is the result of resolving a cache key for one run.
type Resolution struct {
	Key string // Resolved cache key
	Dir string // Directory pip should use as its cache
	Hit bool   // Whether a prior populated entry was reused
	// Ephemeral marks throwaway directories that callers should remove
	// once the run completes.
	Ephemeral bool
	// Outcome is the label recorded in metrics: hit, miss or bypass.
	Outcome string
}

// Store manages cache entries under a base directory. An empty base
// directory puts the store in ephemeral mode: every run gets a throwaway
// cache directory and nothing persists.
type Store struct {
	baseDir string
	log     *zap.SugaredLogger
}

// NewStore creates a cache store rooted at baseDir.
func NewStore(baseDir string, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.S()
	}
	return &Store{baseDir: baseDir, log: log}
}

// Key computes the cache key for the given OS identifier and manifest
// content. The key is a pure function of its inputs: identical manifests on
// the same OS always map to the same entry.
func Key(osID string, manifest []byte) string {
	sum := sha256.Sum256(manifest)
	return fmt.Sprintf("%s-pip-%s", osID, hex.EncodeToString(sum[:]))
}

// KeyFromFile computes the cache key from the manifest file at path.
func KeyFromFile(osID string, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading dependency manifest: %w", err)
	}
	return Key(osID, data), nil
}

// Resolve locates the cache entry for key, creating an empty one on a miss.
// The returned directory is handed to pip via PIP_CACHE_DIR; pip populates
// it during installs, which is what persists the entry for later runs.
//
// With bypass set, a fresh throwaway directory is returned and the shared
// entry is left untouched.
func (s *Store) Resolve(key string, bypass bool) (Resolution, error) {
	if s.baseDir == "" || bypass {
		dir, err := os.MkdirTemp("", "guide-acceptor-pip-*")
		if err != nil {
			return Resolution{}, fmt.Errorf("creating ephemeral cache dir: %w", err)
		}
		outcome := OutcomeMiss
		if bypass {
			outcome = OutcomeBypass
		}
		s.log.Infow("Package cache not persisted", "key", key, "dir", dir, "outcome", outcome)
		return Resolution{Key: key, Dir: dir, Ephemeral: true, Outcome: outcome}, nil
	}

	dir := filepath.Join(s.baseDir, key)
	if populated(dir) {
		s.log.Infow("Package cache hit", "key", key, "dir", dir)
		return Resolution{Key: key, Dir: dir, Hit: true, Outcome: OutcomeHit}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Resolution{}, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	s.log.Infow("Package cache miss", "key", key, "dir", dir)
	return Resolution{Key: key, Dir: dir, Outcome: OutcomeMiss}, nil
}

// populated reports whether dir exists and holds at least one entry. An
// empty directory left behind by an aborted run still counts as a miss.
func populated(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}
