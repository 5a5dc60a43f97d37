// Package reqcache memoises in-flight git queries for the lifetime of a
// single arb invocation (spec §4.6). It caches promises, not values: two
// concurrent callers asking for the same key coalesce onto one underlying
// git call rather than each paying for it.
package reqcache

import (
	"context"
	"sync"
)

// Cache is a single command invocation's memoisation table. The zero value
// is ready to use; callers create exactly one per command.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	once  sync.Once
	value any
	err   error
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Get memoises the result of fn under key: the first caller for a given key
// runs fn; concurrent and subsequent callers block on (or reuse) that same
// result rather than re-running it.
func Get[T any](c *Cache, key string, fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		c.mu.Lock()
		if c.entries == nil {
			c.entries = make(map[string]*entry)
		}
		e, ok := c.entries[key]
		if !ok {
			e = &entry{}
			c.entries[key] = e
		}
		c.mu.Unlock()

		e.once.Do(func() {
			e.value, e.err = fn(ctx)
		})

		v, _ := e.value.(T)
		return v, e.err
	}
}

// Invalidate drops a single key, forcing the next Get for it to recompute.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAfterFetch clears only the entries a fetch may have changed.
// Per §4.6, remote names and remote URLs are stable across a fetch and
// survive; only the default-branch symref per (repoDir, remote) is cleared.
func (c *Cache) InvalidateAfterFetch(repoDirs []string, remotesByRepo map[string][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, dir := range repoDirs {
		for _, remote := range remotesByRepo[dir] {
			delete(c.entries, DefaultBranchKey(dir, remote))
		}
	}
}

// Key helpers keep the cache's string keys consistent across callers.

func RemoteNamesKey(repoDir string) string { return "remote-names:" + repoDir }

func ResolvedRemotesKey(repoDir string) string { return "resolved-remotes:" + repoDir }

func DefaultBranchKey(repoDir, remote string) string { return "default-branch:" + repoDir + ":" + remote }

func RemoteURLKey(repoDir, remote string) string { return "remote-url:" + repoDir + ":" + remote }
