package store

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps chunks in a Badger key/value database, giving a
// single-file-tree container alternative to one-object-per-chunk layouts.
// Badger values are atomic blobs, so ranged reads slice the whole value and
// partial writes are unsupported.
type BadgerStore struct {
	db           *badger.DB
	readCounter  uint64
	writeCounter uint64
}

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps the database entirely in memory, mainly for tests.
	InMemory bool
	// ValueLogFileSize caps each value log file in bytes. Zero keeps the
	// Badger default.
	ValueLogFileSize int64
}

// NewBadgerStore opens a Badger backed store.
func NewBadgerStore(config BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(config.Path)
	opts.Logger = nil
	opts.SyncWrites = false
	if config.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	if config.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = config.ValueLogFileSize
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &StoreError{Op: "open", Key: config.Path, Err: err}
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// Counters returns the number of read and write operations performed since
// the store was opened.
func (b *BadgerStore) Counters() (reads, writes uint64) {
	return atomic.LoadUint64(&b.readCounter), atomic.LoadUint64(&b.writeCounter)
}

func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	atomic.AddUint64(&b.readCounter, 1)
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StoreError{Op: "get", Key: key, Err: err}
	}
	return value, true, nil
}

func (b *BadgerStore) GetPartial(ctx context.Context, key string, ranges []ByteRange) ([][]byte, bool, error) {
	value, found, err := b.Get(ctx, key)
	if err != nil || !found {
		return nil, found, err
	}
	spans, err := SliceRanges(value, ranges)
	if err != nil {
		return nil, true, &StoreError{Op: "get_partial", Key: key, Err: err}
	}
	return spans, true, nil
}

func (b *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	atomic.AddUint64(&b.writeCounter, 1)
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// SetPartial is unsupported: badger values are atomic blobs with no
// in-place update path.
func (b *BadgerStore) SetPartial(_ context.Context, key string, _ uint64, _ []byte) error {
	return &StoreError{Op: "set_partial", Key: key, Err: ErrUnsupported}
}

func (b *BadgerStore) Erase(_ context.Context, key string) error {
	atomic.AddUint64(&b.writeCounter, 1)
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return &StoreError{Op: "erase", Key: key, Err: err}
	}
	return nil
}

func (b *BadgerStore) ErasePrefix(ctx context.Context, prefix string) error {
	keys, err := b.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := b.Erase(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (b *BadgerStore) List(_ context.Context, prefix string) ([]string, error) {
	atomic.AddUint64(&b.readCounter, 1)
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, &StoreError{Op: "list", Key: prefix, Err: err}
	}
	sort.Strings(keys)
	return keys, nil
}
