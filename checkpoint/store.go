// Package checkpoint persists ledger snapshots to LevelDB and restores
// ledgers from them. Only the newest saved snapshot is kept on disk; the
// in-memory history chain is not persisted.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/kocubinski/avl-ledger/avl"
	"github.com/kocubinski/avl-ledger/history"
	"github.com/kocubinski/avl-ledger/ledger"
)

var ErrNoCheckpoint = errors.New("no checkpoint found")

var (
	versionKey  = []byte("m/version")
	entryPrefix = []byte("e/")
)

type Store[V any] struct {
	db    *leveldb.DB
	codec Codec[V]
}

// Open opens or creates the LevelDB database in dir.
func Open[V any](dir string, codec Codec[V]) (*Store[V], error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("error opening checkpoint db %s: %w", dir, err)
	}
	return &Store[V]{db: db, codec: codec}, nil
}

func (s *Store[V]) Close() error {
	return s.db.Close()
}

func entryKey(key string) []byte {
	bz := make([]byte, 0, len(entryPrefix)+len(key))
	bz = append(bz, entryPrefix...)
	return append(bz, key...)
}

func encodeVersion(version uint64) []byte {
	var bz [8]byte
	binary.BigEndian.PutUint64(bz[:], version)
	return bz[:]
}

// Version returns the version of the saved snapshot.
func (s *Store[V]) Version() (uint64, error) {
	bz, err := s.db.Get(versionKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, ErrNoCheckpoint
	}
	if err != nil {
		return 0, err
	}
	if len(bz) != 8 {
		return 0, fmt.Errorf("corrupt checkpoint version: %d bytes", len(bz))
	}
	return binary.BigEndian.Uint64(bz), nil
}

// Save replaces the stored entries with the contents of snap.
func (s *Store[V]) Save(snap *ledger.Snapshot[V]) error {
	batch := new(leveldb.Batch)
	itr := s.db.NewIterator(util.BytesPrefix(entryPrefix), nil)
	for itr.Next() {
		batch.Delete(bytes.Clone(itr.Key()))
	}
	itr.Release()
	if err := itr.Error(); err != nil {
		return fmt.Errorf("error scanning checkpoint entries: %w", err)
	}

	for k, v := range snap.All() {
		bz, err := s.codec.Marshal(v)
		if err != nil {
			return fmt.Errorf("error encoding value for key %q: %w", k, err)
		}
		batch.Put(entryKey(k), bz)
	}
	batch.Put(versionKey, encodeVersion(snap.Version()))
	return s.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// SaveIncremental writes only what changed between prev, which must be the
// snapshot currently stored, and next.
func (s *Store[V]) SaveIncremental(prev, next *ledger.Snapshot[V]) error {
	stored, err := s.Version()
	if err != nil {
		return err
	}
	if stored != prev.Version() {
		return fmt.Errorf("stored checkpoint is at version %d, not %d", stored, prev.Version())
	}

	batch := new(leveldb.Batch)
	var encodeErr error
	equal := func(a, b V) bool {
		abz, err := s.codec.Marshal(a)
		if err != nil {
			encodeErr = err
			return false
		}
		bbz, err := s.codec.Marshal(b)
		if err != nil {
			encodeErr = err
			return false
		}
		return bytes.Equal(abz, bbz)
	}
	for _, change := range history.Diff(prev, next, equal) {
		if change.Kind == history.Removed {
			batch.Delete(entryKey(change.Key))
			continue
		}
		bz, err := s.codec.Marshal(change.New)
		if err != nil {
			return fmt.Errorf("error encoding value for key %q: %w", change.Key, err)
		}
		batch.Put(entryKey(change.Key), bz)
	}
	if encodeErr != nil {
		return fmt.Errorf("error comparing values: %w", encodeErr)
	}
	batch.Put(versionKey, encodeVersion(next.Version()))
	return s.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// Load reads the saved snapshot back in key order.
func (s *Store[V]) Load() (uint64, []avl.Entry[V], error) {
	version, err := s.Version()
	if err != nil {
		return 0, nil, err
	}

	var entries []avl.Entry[V]
	itr := s.db.NewIterator(util.BytesPrefix(entryPrefix), nil)
	defer itr.Release()
	for itr.Next() {
		key := string(itr.Key()[len(entryPrefix):])
		v, err := s.codec.Unmarshal(itr.Value())
		if err != nil {
			return 0, nil, fmt.Errorf("error decoding value for key %q: %w", key, err)
		}
		entries = append(entries, avl.Entry[V]{Key: key, Value: v})
	}
	if err := itr.Error(); err != nil {
		return 0, nil, err
	}
	return version, entries, nil
}

// Restore loads the saved snapshot into a new ledger.
func (s *Store[V]) Restore(opts ledger.Options, hooks ...ledger.PublishHook[V]) (*ledger.Ledger[V], error) {
	version, entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	return ledger.Restore(opts, version, entries, hooks...), nil
}
