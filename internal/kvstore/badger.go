package kvstore

import (
	"errors"

	"github.com/dgraph-io/badger/v3"

	"marathon-agent/internal/interfaces"
)

// badgerKV is the BadgerDB implementation of the durable key-value store.
// The daily balance baselines live here so they survive process restarts.
type badgerKV struct {
	db *badger.DB
}

var _ interfaces.KV = (*badgerKV)(nil)

// OpenBadger opens (or creates) the store at dbPath.
func OpenBadger(dbPath string) (interfaces.KV, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger's own logging is disabled to keep the agent's logs clean;
	// errors still surface from the DB operations themselves.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerKV{db: db}, nil
}

func (b *badgerKV) Get(key string) (string, bool, error) {
	var value string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (b *badgerKV) Set(key, value string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

func (b *badgerKV) Close() error {
	return b.db.Close()
}
