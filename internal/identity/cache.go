package identity

import "sync/atomic"

// KeyCache holds at most one public key. Every Invalidate starts a new
// generation; a fill only lands if no invalidation happened since the
// caller took its generation, so a fetch that raced a write cannot
// reinstate the superseded key.
type KeyCache struct {
	v atomic.Pointer[cacheEntry]
}

type cacheEntry struct {
	gen   uint64
	key   string
	valid bool
}

var emptyEntry = &cacheEntry{}

func (c *KeyCache) load() *cacheEntry {
	if e := c.v.Load(); e != nil {
		return e
	}
	return emptyEntry
}

func (c *KeyCache) Get() (string, bool) {
	e := c.load()
	return e.key, e.valid
}

// Generation is taken before fetching the value later passed to Fill.
func (c *KeyCache) Generation() uint64 {
	return c.load().gen
}

// Fill stores key if the cache is still at generation gen.
func (c *KeyCache) Fill(gen uint64, key string) bool {
	for {
		cur := c.v.Load()
		e := cur
		if e == nil {
			e = emptyEntry
		}
		if e.gen != gen {
			return false
		}
		if c.v.CompareAndSwap(cur, &cacheEntry{gen: gen, key: key, valid: true}) {
			return true
		}
	}
}

func (c *KeyCache) Invalidate() {
	for {
		cur := c.v.Load()
		e := cur
		if e == nil {
			e = emptyEntry
		}
		if c.v.CompareAndSwap(cur, &cacheEntry{gen: e.gen + 1}) {
			return
		}
	}
}
