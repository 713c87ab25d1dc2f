// ============================================================================
// Local Fallback Cache
// ============================================================================
//
// Package: internal/cache
// Purpose: Same-device, synchronous key-value store used as a crash/offline
// safety net for draft autosave. Distinct from the authoritative remote
// store: the local copy is for recovery, the remote copy for sync.
//
// The file-backed implementation writes each entry with the atomic
// temp-file + rename pattern so a crash mid-write never leaves a torn entry
// behind. Every operation is best-effort; callers log failures instead of
// propagating them.
//
// ============================================================================

package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Cache is the local fallback boundary consumed by the persistence layer.
type Cache interface {
	// Get returns the stored value for key, or ok=false on a miss.
	Get(key string) (value []byte, ok bool)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Remove deletes the entry for key. Removing a missing key is not an error.
	Remove(key string) error
}

// FileCache stores one file per entry under a scoped directory.
type FileCache struct {
	dir string
	mu  sync.Mutex // serializes writes to the same entry
}

// NewFileCache creates the cache directory if needed and returns the cache.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *FileCache) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.entryPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename cache entry: %w", err)
	}
	return nil
}

func (c *FileCache) Remove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.entryPath(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

// entryPath maps a key to a file name, replacing anything that is not safe
// in a file name.
func (c *FileCache) entryPath(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(c.dir, safe+".json")
}
