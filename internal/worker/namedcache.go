package worker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/aniview/aniview/pkg/crypto"
)

// CachedResponse is a durable snapshot of one HTTP response.
type CachedResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

// cacheEntry is the on-disk record; the original key is stored alongside
// the response because filenames are key hashes.
type cacheEntry struct {
	Key      string         `json:"key"`
	Response CachedResponse `json:"response"`
}

// CacheStorage manages the worker's named caches on a filesystem. Each
// named cache is a directory; each entry a JSON file named by the hash of
// its key. Backed by afero so tests run against an in-memory filesystem.
type CacheStorage struct {
	fs   afero.Fs
	root string

	mu   sync.Mutex
	open map[string]*NamedCache
}

// NewCacheStorage creates cache storage rooted at dir.
func NewCacheStorage(fs afero.Fs, root string) *CacheStorage {
	return &CacheStorage{
		fs:   fs,
		root: root,
		open: make(map[string]*NamedCache),
	}
}

// Open returns the named cache, creating it lazily on first use.
func (s *CacheStorage) Open(name string) (*NamedCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.open[name]; ok {
		return c, nil
	}

	dir := s.root + "/" + name
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	c := &NamedCache{fs: s.fs, dir: dir}
	s.open[name] = c
	return c, nil
}

// Names enumerates all existing named caches.
func (s *CacheStorage) Names() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("list caches under %s: %w", s.root, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

// Delete removes a named cache and all its entries.
func (s *CacheStorage) Delete(name string) error {
	s.mu.Lock()
	delete(s.open, name)
	s.mu.Unlock()

	if err := s.fs.RemoveAll(s.root + "/" + name); err != nil {
		return fmt.Errorf("delete cache %s: %w", name, err)
	}
	return nil
}

// NamedCache is one durable key to response-snapshot mapping.
type NamedCache struct {
	fs  afero.Fs
	dir string
	mu  sync.RWMutex
}

func (c *NamedCache) entryPath(key string) string {
	return c.dir + "/" + crypto.Sha256Hex(key) + ".json"
}

// Match returns the stored response for key, if any.
func (c *NamedCache) Match(key string) (*CachedResponse, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, err := afero.ReadFile(c.fs, c.entryPath(key))
	if err != nil {
		// Absence is the common case, not an error.
		return nil, false, nil
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cache entry for %q: %w", key, err)
	}
	return &entry.Response, true, nil
}

// Put stores or replaces the response for key.
func (c *NamedCache) Put(key string, resp *CachedResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(cacheEntry{Key: key, Response: *resp})
	if err != nil {
		return fmt.Errorf("encode cache entry for %q: %w", key, err)
	}
	if err := afero.WriteFile(c.fs, c.entryPath(key), raw, 0o644); err != nil {
		return fmt.Errorf("write cache entry for %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key; deleting an absent key is not an error.
func (c *NamedCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.fs.Remove(c.entryPath(key)); err != nil {
		return nil
	}
	return nil
}

// Keys lists the original keys of all stored entries.
func (c *NamedCache) Keys() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache entries in %s: %w", c.dir, err)
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		raw, err := afero.ReadFile(c.fs, c.dir+"/"+info.Name())
		if err != nil {
			continue
		}
		var entry cacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		keys = append(keys, entry.Key)
	}
	return keys, nil
}
