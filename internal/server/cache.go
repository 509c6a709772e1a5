package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheMaxSize = 256
	defaultCacheTTL     = 10 * time.Minute
)

// cacheEntry pairs an answer with its insertion time for TTL checks.
type cacheEntry struct {
	answer   string
	storedAt time.Time
}

// AnswerCache memoizes validated answers per (query, repository) pair. A nil
// cache is valid and misses everything. Diagnostic answers are never stored:
// a transient failure must not be replayed for the cache lifetime.
type AnswerCache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
}

// NewAnswerCache creates an LRU answer cache with a TTL.
func NewAnswerCache(maxSize int, ttl time.Duration) (*AnswerCache, error) {
	if maxSize <= 0 {
		maxSize = defaultCacheMaxSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	entries, err := lru.New[string, cacheEntry](maxSize)
	if err != nil {
		return nil, fmt.Errorf("create answer cache: %w", err)
	}
	return &AnswerCache{entries: entries, ttl: ttl}, nil
}

// Get returns the cached answer for the pair, expiring stale entries.
func (c *AnswerCache) Get(query, repoPath string) (string, bool) {
	if c == nil || c.entries == nil {
		return "", false
	}
	key := cacheKey(query, repoPath)
	entry, ok := c.entries.Get(key)
	if !ok {
		return "", false
	}
	if time.Since(entry.storedAt) > c.ttl {
		c.entries.Remove(key)
		return "", false
	}
	return entry.answer, true
}

// Put stores an answer unless it is empty or a diagnostic.
func (c *AnswerCache) Put(query, repoPath, answer string) {
	if c == nil || c.entries == nil {
		return
	}
	if answer == "" || strings.HasPrefix(answer, "Error: ") {
		return
	}
	c.entries.Add(cacheKey(query, repoPath), cacheEntry{
		answer:   answer,
		storedAt: time.Now(),
	})
}

// Len returns the number of cached answers.
func (c *AnswerCache) Len() int {
	if c == nil || c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

func cacheKey(query, repoPath string) string {
	sum := sha256.Sum256([]byte(query + "\x00" + repoPath))
	return hex.EncodeToString(sum[:])
}
