package balance

import (
	"sync"

	"capitoro/internal/domain"
)

// Cache holds the latest balance reading per address. Writers overwrite each
// other; there is no coordination between concurrent fetches of one address.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]domain.WalletBalance
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]domain.WalletBalance)}
}

// Get returns the entry for address.
func (c *Cache) Get(address string) (domain.WalletBalance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[address]
	return b, ok
}

// Put stores b under its address.
func (c *Cache) Put(b domain.WalletBalance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[b.Address] = b
}

// Update applies fn to an existing entry. It reports false if none exists.
func (c *Cache) Update(address string, fn func(*domain.WalletBalance)) (domain.WalletBalance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[address]
	if !ok {
		return b, false
	}
	fn(&b)
	c.entries[address] = b
	return b, true
}

// Delete removes the entry for address.
func (c *Cache) Delete(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, address)
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
