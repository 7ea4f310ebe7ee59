package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
)

// ChainLoader builds a chain on a cache miss.
type ChainLoader func() (types.OptionChain, error)

// ChainCache holds the option chains resolved during one run. A key is written
// at most once and is safe to read concurrently afterwards.
type ChainCache interface {
	// GetOrLoad returns the cached chain or stores the loader's result. Loader
	// errors are returned and nothing is stored. hit is true when no load happened.
	GetOrLoad(expiry string, window types.TimeWindow, load ChainLoader) (chain types.OptionChain, hit bool, err error)
	// Stats returns the number of lookups and hits so far.
	Stats() (lookups int, hits int)
}

type chainEntry struct {
	once  sync.Once
	chain types.OptionChain
	err   error
	done  bool
}

// ChainCacheV1 is the per-run chain cache. Concurrent loads of the same key
// share one loader call.
type ChainCacheV1 struct {
	mu      sync.Mutex
	entries map[string]*chainEntry
	lookups int
	hits    int
}

func NewChainCache() ChainCache {
	return &ChainCacheV1{
		entries: make(map[string]*chainEntry),
	}
}

// GetOrLoad implements ChainCache.
func (c *ChainCacheV1) GetOrLoad(expiry string, window types.TimeWindow, load ChainLoader) (types.OptionChain, bool, error) {
	key := chainKey(expiry, window)

	c.mu.Lock()
	c.lookups++

	entry, ok := c.entries[key]
	if ok && entry.done {
		c.hits++
		c.mu.Unlock()

		return entry.chain, true, nil
	}

	if !ok {
		entry = &chainEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	loaded := false

	entry.once.Do(func() {
		loaded = true
		entry.chain, entry.err = load()
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.err != nil {
		// failed loads are not cached, the next lookup retries
		if c.entries[key] == entry {
			delete(c.entries, key)
		}

		return types.OptionChain{}, false, entry.err
	}

	entry.done = true

	if !loaded {
		c.hits++
	}

	return entry.chain, !loaded, nil
}

// Stats implements ChainCache.
func (c *ChainCacheV1) Stats() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lookups, c.hits
}

func chainKey(expiry string, window types.TimeWindow) string {
	return fmt.Sprintf("%s|%s|%s", expiry, window.Start.UTC().Format(time.RFC3339Nano), window.End.UTC().Format(time.RFC3339Nano))
}
