package dispatch

import (
	"sort"
	"time"

	"homecore/internal/models"
)

// Accessory is a cached accessory state with its freshness
type Accessory struct {
	models.CachedAccessoryState
	Stale bool `json:"stale"`
}

type accessoryCache struct {
	staleAfter time.Duration
	entries    map[string]models.CachedAccessoryState
}

func newAccessoryCache(staleAfter time.Duration) *accessoryCache {
	return &accessoryCache{staleAfter: staleAfter, entries: make(map[string]models.CachedAccessoryState)}
}

func (c *accessoryCache) update(id string, now time.Time, fn func(*models.CachedAccessoryState)) {
	s := c.entries[id]
	s.DeviceID = id
	fn(&s)
	s.UpdatedAt = now
	c.entries[id] = s
}

func (c *accessoryCache) markAllUnreachable(now time.Time) int {
	n := 0
	for id, s := range c.entries {
		if s.Reachable {
			s.Reachable = false
			s.UpdatedAt = now
			c.entries[id] = s
			n++
		}
	}
	return n
}

func (c *accessoryCache) get(id string, now time.Time) (Accessory, bool) {
	s, ok := c.entries[id]
	if !ok {
		return Accessory{}, false
	}
	return Accessory{CachedAccessoryState: s, Stale: s.IsStale(now, c.staleAfter)}, true
}

func (c *accessoryCache) all(now time.Time) []Accessory {
	out := make([]Accessory, 0, len(c.entries))
	for _, s := range c.entries {
		out = append(out, Accessory{CachedAccessoryState: s, Stale: s.IsStale(now, c.staleAfter)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}
