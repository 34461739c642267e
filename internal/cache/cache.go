// Package cache implements the Ephemeral Cache: a content-hash keyed store
// for stage and request results with TTL and LRU-of-expired-first eviction
// (spec §4.2), grounded on the idempotency store's TTL-map idiom and
// extended with a bounded LRU via hashicorp/golang-lru.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	atomicfile "github.com/natefinch/atomic"
)

// Entry is one cached response (spec CacheEntry).
type Entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int       `json:"size"`
}

func (e Entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Stats summarizes one namespace's cache occupancy.
type Stats struct {
	Namespace string `json:"namespace"`
	Entries   int    `json:"entries"`
	Bytes     int    `json:"bytes"`
}

// namespaceStore is one namespace's serialized writer plus LRU index.
type namespaceStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	lru     *lru.Cache[string, struct{}]
}

// Cache is the Ephemeral Cache. Writers serialize per namespace; reads are
// safe for concurrent use (spec §4.2 invariants).
type Cache struct {
	maxEntries int

	mu         sync.RWMutex
	namespaces map[string]*namespaceStore
}

// New constructs a Cache bounding each namespace to maxEntries items
// before LRU eviction kicks in.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Cache{maxEntries: maxEntries, namespaces: make(map[string]*namespaceStore)}
}

func (c *Cache) namespace(ns string) *namespaceStore {
	c.mu.Lock()
	defer c.mu.Unlock()
	store, ok := c.namespaces[ns]
	if !ok {
		// One slot of headroom so Add never drops a key on its own;
		// evictIfNeeded decides what leaves, keeping map and index in step.
		idx, _ := lru.New[string, struct{}](c.maxEntries + 1)
		store = &namespaceStore{entries: make(map[string]Entry), lru: idx}
		c.namespaces[ns] = store
	}
	return store
}

// Key derives the SHA-256 content-hash key for a request, bucketing
// temperature to 0.1 to avoid float noise (spec §4.2 key derivation).
func Key(namespace, modelID, systemPrompt, userContent string, temperature float64, maxTokens int) string {
	bucketed := float64(int(temperature*10+0.5)) / 10.0
	canonical := struct {
		Namespace    string  `json:"namespace"`
		ModelID      string  `json:"modelId"`
		SystemPrompt string  `json:"systemPrompt"`
		UserContent  string  `json:"userContent"`
		TempBucket   float64 `json:"temperatureBucket"`
		MaxTokens    int     `json:"maxTokens"`
	}{namespace, modelID, systemPrompt, userContent, bucketed, maxTokens}

	buf, _ := json.Marshal(canonical)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached entry for key in namespace, or (Entry{}, false)
// if absent or expired. An expired entry is never returned (spec §4.2).
func (c *Cache) Get(namespace, key string) (Entry, bool) {
	store := c.namespace(namespace)
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, ok := store.entries[key]
	if !ok {
		return Entry{}, false
	}
	if entry.expired(time.Now()) {
		delete(store.entries, key)
		store.lru.Remove(key)
		return Entry{}, false
	}
	store.lru.Get(key) // refresh recency
	return entry, true
}

// Put writes value under key in namespace with the given TTL. Put never
// partially writes: the map entry and LRU index are updated atomically
// under the namespace lock.
func (c *Cache) Put(namespace, key, value string, ttl time.Duration) {
	store := c.namespace(namespace)
	now := time.Now()
	entry := Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Size:      len(value),
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.entries[key] = entry
	store.lru.Add(key, struct{}{})
	c.evictIfNeeded(store)
}

// evictIfNeeded reclaims space once a namespace exceeds maxEntries,
// expired entries first, then least-recently-used overall (spec §3
// CacheEntry invariant).
func (c *Cache) evictIfNeeded(store *namespaceStore) {
	if len(store.entries) <= c.maxEntries {
		return
	}
	now := time.Now()
	for k, e := range store.entries {
		if len(store.entries) <= c.maxEntries {
			break
		}
		if e.expired(now) {
			delete(store.entries, k)
			store.lru.Remove(k)
		}
	}
	for len(store.entries) > c.maxEntries {
		oldest, _, ok := store.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(store.entries, oldest)
	}
}

// Stats reports occupancy for namespace, or all namespaces if empty.
func (c *Cache) Stats(namespace string) []Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Stats
	collect := func(ns string, store *namespaceStore) {
		store.mu.Lock()
		defer store.mu.Unlock()
		size := 0
		for _, e := range store.entries {
			size += e.Size
		}
		out = append(out, Stats{Namespace: ns, Entries: len(store.entries), Bytes: size})
	}

	if namespace != "" {
		if store, ok := c.namespaces[namespace]; ok {
			collect(namespace, store)
		}
		return out
	}
	for ns, store := range c.namespaces {
		collect(ns, store)
	}
	return out
}

// Maintenance evicts every expired entry across all namespaces and reports
// the removed count (spec §4.2 maintenance operation).
func (c *Cache) Maintenance() int {
	c.mu.RLock()
	stores := make(map[string]*namespaceStore, len(c.namespaces))
	for ns, s := range c.namespaces {
		stores[ns] = s
	}
	c.mu.RUnlock()

	removed := 0
	now := time.Now()
	for _, store := range stores {
		store.mu.Lock()
		for k, e := range store.entries {
			if e.expired(now) {
				delete(store.entries, k)
				store.lru.Remove(k)
				removed++
			}
		}
		store.mu.Unlock()
	}
	return removed
}

// snapshotFile is the atomic on-disk representation used for restart
// recovery, mirroring store/worker.go's persistence idiom.
type snapshotFile struct {
	Namespaces map[string][]Entry `json:"namespaces"`
}

// Persist atomically snapshots every namespace's unexpired entries to path.
func (c *Cache) Persist(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := snapshotFile{Namespaces: make(map[string][]Entry, len(c.namespaces))}
	now := time.Now()
	for ns, store := range c.namespaces {
		store.mu.Lock()
		entries := make([]Entry, 0, len(store.entries))
		for _, e := range store.entries {
			if !e.expired(now) {
				entries = append(entries, e)
			}
		}
		store.mu.Unlock()
		snapshot.Namespaces[ns] = entries
	}

	buf, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomicfile.WriteFile(path, bytes.NewReader(buf))
}

// Restore loads a previously persisted snapshot into the cache, skipping
// entries that have since expired.
func (c *Cache) Restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snapshot snapshotFile
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}

	now := time.Now()
	for ns, entries := range snapshot.Namespaces {
		store := c.namespace(ns)
		store.mu.Lock()
		for _, e := range entries {
			if !e.expired(now) {
				store.entries[e.Key] = e
				store.lru.Add(e.Key, struct{}{})
			}
		}
		store.mu.Unlock()
	}
	return nil
}
