package archiver

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/archplot/archplot/pkg/series"
)

// Cache stores backfill responses in BadgerDB so repeated pans over the
// same window skip the archiver. Entries expire after a TTL; history is
// immutable, so staleness only matters near the live edge.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// CacheConfig holds cache tuning.
type CacheConfig struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// TTL before a cached response expires
	TTL time.Duration
}

// OpenCache opens the response cache.
func OpenCache(cfg CacheConfig) (*Cache, error) {
	opts := badger.DefaultOptions(cfg.Path)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// Responses are small JSON blobs read back rarely; keep the store on
	// a tight memory budget.
	memTableSize := int64(16 * 1024 * 1024)
	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3).
		WithBlockCacheSize(memTableSize / 2).
		WithIndexCacheSize(memTableSize / 4).
		WithMaxLevels(4).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithNumCompactors(2).
		WithValueLogFileSize(64 << 20).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// cacheKey hashes the request parameters into a fixed-width key.
func cacheKey(pv string, start, end float64, processing string) []byte {
	h := xxhash.Sum64String(fmt.Sprintf("%s|%s|%g|%g", pv, processing, start, end))
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, h)
	return key
}

// Get returns the cached response for a request, if present.
func (c *Cache) Get(pv string, start, end float64, processing string) ([]series.Sample, bool) {
	var samples []series.Sample
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(pv, start, end, processing))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &samples)
		})
	})
	if err != nil {
		return nil, false
	}
	return samples, true
}

// Put stores a response with the configured TTL.
func (c *Cache) Put(pv string, start, end float64, processing string, samples []series.Sample) error {
	value, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(pv, start, end, processing), value).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

// RunGC reclaims space from expired entries. Call periodically.
func (c *Cache) RunGC(discardRatio float64) error {
	err := c.db.RunValueLogGC(discardRatio)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
