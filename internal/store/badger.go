// SPDX-License-Identifier: MIT

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/reelvault/internal/media"
)

// Badger key layout:
//
//	rec:<id>  JSON-encoded media.Record
//	blob:<id> raw payload bytes
//
// Record and payload are written in one transaction, so a create is
// either fully visible or absent.
const (
	recPrefix  = "rec:"
	blobPrefix = "blob:"
	seqKey     = "media_seq"
)

// BadgerStore is the default persistent backend.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenBadgerStore opens (or creates) a badger database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(seqKey), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sequence: %w", err)
	}

	return &BadgerStore{db: db, seq: seq}, nil
}

func (s *BadgerStore) Create(ctx context.Context, rec *media.Record, payload io.Reader) error {
	data, err := io.ReadAll(payload)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	rec.Seq = next

	recKey := []byte(recPrefix + rec.ID)
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(recKey); err == nil {
			return media.ErrDuplicateID
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(recKey, buf); err != nil {
			return err
		}
		return txn.Set([]byte(blobPrefix+rec.ID), data)
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.ID, err)
	}
	return nil
}

func (s *BadgerStore) ListAll(ctx context.Context) ([]media.Record, error) {
	var recs []media.Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec media.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	if recs == nil {
		recs = []media.Record{}
	}
	media.SortNewestFirst(recs)
	return recs, nil
}

func (s *BadgerStore) Payload(ctx context.Context, id string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobPrefix + id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("payload %s: %w", id, media.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("payload %s: %w", id, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BadgerStore) DeleteByID(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		recKey := []byte(recPrefix + id)
		if _, err := txn.Get(recKey); err != nil {
			return err
		}
		if err := txn.Delete(recKey); err != nil {
			return err
		}
		return txn.Delete([]byte(blobPrefix + id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", id, media.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("release sequence: %w", err)
	}
	return s.db.Close()
}
