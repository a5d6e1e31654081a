package store

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kurtz/sowcore/internal/board"
	"github.com/kurtz/sowcore/internal/cache"
)

const (
	keyEgdbMetaPrefix = "egdb_meta/"
	keyCacheStats     = "cache_stats"
)

// EgdbMeta records what a generated EGDB layer set covers, so a later
// invocation can decide whether to regenerate or load from disk.
type EgdbMeta struct {
	Rules       board.Rules `json:"rules"`
	MaxStones   int         `json:"max_stones"`
	Compressed  bool        `json:"compressed"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// CacheStatsSnapshot is a persisted point-in-time cache.Stats reading,
// stamped with when it was taken.
type CacheStatsSnapshot struct {
	Stats   cache.Stats `json:"stats"`
	TakenAt time.Time   `json:"taken_at"`
}

// Store wraps a BadgerDB instance holding small amounts of cross-invocation
// metadata. It does not hold EGDB layer bytes themselves — those are
// managed by the egdb package's own backends.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) the metadata store under the
// platform data directory.
func Open() (*Store, error) {
	dir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func egdbMetaKey(rules board.Rules) []byte {
	suffix := "classic"
	if rules == board.Avalanche {
		suffix = "avalanche"
	}
	return []byte(keyEgdbMetaPrefix + suffix)
}

// SaveEgdbMeta records that an EGDB generation run for the given ruleset
// completed.
func (s *Store) SaveEgdbMeta(meta EgdbMeta) error {
	meta.GeneratedAt = time.Now()
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(egdbMetaKey(meta.Rules), data)
	})
}

// LoadEgdbMeta returns the last recorded generation metadata for rules, or
// ok==false if none has been saved.
func (s *Store) LoadEgdbMeta(rules board.Rules) (meta EgdbMeta, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(egdbMetaKey(rules))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		ok = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	return meta, ok, err
}

// SaveCacheStats persists a cache-stats snapshot, overwriting any prior
// one; callers typically call this periodically during a long search.
func (s *Store) SaveCacheStats(stats cache.Stats) error {
	snapshot := CacheStatsSnapshot{Stats: stats, TakenAt: time.Now()}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyCacheStats), data)
	})
}

// LoadCacheStats returns the most recently saved cache-stats snapshot, or
// ok==false if none exists.
func (s *Store) LoadCacheStats() (snapshot CacheStatsSnapshot, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(keyCacheStats))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		ok = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snapshot)
		})
	})
	return snapshot, ok, err
}
