package holiday

import (
	"slices"
	"strings"
	"sync"
)

// Cache holds holiday records keyed strictly by (country, year).
// Entries are written once and never evicted; an empty slot means
// "fetched, nothing known", which differs from an absent slot.
type Cache struct {
	data map[string]map[int][]Record
	mu   sync.RWMutex
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string]map[int][]Record)}
}

// Has reports whether the (country, year) slot is populated.
func (c *Cache) Has(countryCode string, year int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.data[normalizeCC(countryCode)][year]
	return ok
}

// Get returns the records of a slot.
func (c *Cache) Get(countryCode string, year int) ([]Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	recs, ok := c.data[normalizeCC(countryCode)][year]
	return recs, ok
}

// Put fills a slot unless it is already populated. It reports whether the
// slot was written. A nil slice is stored as an empty, populated slot.
func (c *Cache) Put(countryCode string, year int, records []Record) bool {
	cc := normalizeCC(countryCode)
	c.mu.Lock()
	defer c.mu.Unlock()
	years, ok := c.data[cc]
	if !ok {
		years = make(map[int][]Record)
		c.data[cc] = years
	}
	if _, ok := years[year]; ok {
		return false
	}
	if records == nil {
		records = []Record{}
	}
	years[year] = slices.Clone(records)
	return true
}

// Years returns the cached years of a country in ascending order.
func (c *Cache) Years(countryCode string) []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var years []int
	for y := range c.data[normalizeCC(countryCode)] {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

func normalizeCC(cc string) string {
	return strings.ToUpper(strings.TrimSpace(cc))
}
