// Package cache stores analysis reports in BadgerDB, keyed by the system
// hash and the ansatz options.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symmetry"
)

// ErrMiss is returned by Get when no report is stored under a key.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "report/"

// Config configures a Cache.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	// TTL expires entries; zero keeps them.
	TTL time.Duration
	// Logger receives BadgerDB's own log lines. Nil silences them.
	Logger *slog.Logger
}

// Cache is safe for concurrent use.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(f string, args ...interface{})   { b.l.Error(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Warningf(f string, args ...interface{}) { b.l.Warn(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Infof(f string, args ...interface{})    { b.l.Debug(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Debugf(f string, args ...interface{})   { b.l.Debug(fmt.Sprintf(f, args...)) }

// Open opens or creates the database described by cfg.
func Open(cfg Config) (*Cache, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Dir == "":
		return nil, errors.New("cache: directory is required")
	default:
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("cache: create %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open: %w", err)
	}
	return &Cache{db: db, ttl: cfg.TTL}, nil
}

// InMemory opens a cache that lives only as long as the process.
func InMemory() (*Cache, error) { return Open(Config{InMemory: true}) }

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

// Key identifies the analysis of sys, including its candidate generators,
// under opts.
func Key(sys *model.System, opts symmetry.AnsatzOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", sys.Hash(), opts.Key())
	for _, c := range sys.Candidates {
		fmt.Fprintf(h, "%s:%s", c.Name, c.Xi)
		for _, e := range c.Eta {
			fmt.Fprintf(h, ",%s", e)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the report stored under key, or ErrMiss.
func (c *Cache) Get(key string) (*symmetry.Report, error) {
	var r symmetry.Report
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMiss
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &r) })
	})
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}
	return &r, nil
}

// Put stores r under key, replacing any previous report.
func (c *Cache) Put(key string, r *symmetry.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("cache: encode report: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+key), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	return nil
}

// Delete removes the report under key. Deleting a missing key is not an
// error.
func (c *Cache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
}

// Len counts the stored reports.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
