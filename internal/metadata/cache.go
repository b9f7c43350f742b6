package metadata

import (
	"sync"

	"github.com/ashureev/coin-gallery/internal/domain"
)

// Cache memoizes one Load of a store. Create one per request and drop it
// afterwards; it is never invalidated.
type Cache struct {
	store *Store
	once  sync.Once
	idx   Index
	err   error
}

// NewCache returns a cache that loads from store on first use.
func NewCache(store *Store) *Cache {
	return &Cache{store: store}
}

// Index loads the document on the first call and returns the same result
// on every later call.
func (c *Cache) Index() (Index, error) {
	c.once.Do(func() {
		c.idx, c.err = c.store.Load()
	})
	return c.idx, c.err
}

// Get returns the record for id from the memoized index.
func (c *Cache) Get(id int) (domain.CoinRecord, error) {
	idx, err := c.Index()
	if err != nil {
		return domain.CoinRecord{}, err
	}
	return idx.Get(id)
}
