// Copyright (C) 2021 The ffdnet-go authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package dataset

import (
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

// A store file is a bbolt database with a single bucket mapping string
// keys to encoded float32 arrays. Keys are decimal integers assigned
// sequentially from 0 by the writer. Key iteration follows bbolt's
// byte order, i.e. "0","1","10","11",...,"2",... for stores with more
// than ten entries; readers treat this as the canonical stored order.
var storeBucket = []byte("entries")

// Single-writer append handle for building a store. Writes must not
// overlap with reads of the same store file.
type StoreWriter struct {
	path string
	db   *bolt.DB
	next int // next sequential key
}

// Opens a store file for appending, creating it if absent. Appends resume
// after the highest assigned key when the file already has entries.
func CreateStore(path string) (w *StoreWriter, err error) {
	db, err := bolt.Open(path, 0666, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	next := 0
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(storeBucket)
		if err != nil {
			return err
		}
		next = b.Stats().KeyN
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create store %s: %w", path, err)
	}
	return &StoreWriter{path: path, db: db, next: next}, nil
}

// Appends a batch of equally-shaped entries under sequential decimal keys
// in a single transaction, and returns the number of entries now stored
func (w *StoreWriter) Append(shape []int, entries [][]float32) (count int, err error) {
	err = w.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(storeBucket)
		for _, data := range entries {
			key := strconv.Itoa(w.next)
			if err := b.Put([]byte(key), encodeEntry(shape, data)); err != nil {
				return err
			}
			w.next++
		}
		return nil
	})
	if err != nil {
		return w.next, fmt.Errorf("append to store %s: %w", w.path, err)
	}
	return w.next, nil
}

// Number of entries written so far
func (w *StoreWriter) Count() int { return w.next }

func (w *StoreWriter) Close() error { return w.db.Close() }

// Opens the store read-only for the duration of one call to f. The scoped
// open-read-close discipline keeps concurrent readers safe without locks.
func withStore(path string, f func(b *bolt.Bucket) error) error {
	db, err := bolt.Open(path, 0666, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open store %s: %w", path, err)
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(storeBucket)
		if b == nil {
			return fmt.Errorf("store %s has no entry bucket", path)
		}
		return f(b)
	})
}

// Reads a single entry by key, opening and closing the store around the
// read
func ReadEntry(path, key string) (shape []int, data []float32, err error) {
	err = withStore(path, func(b *bolt.Bucket) error {
		v := b.Get([]byte(key))
		if v == nil {
			return fmt.Errorf("store %s has no key %s", path, key)
		}
		shape, data, err = decodeEntry(v)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return shape, data, nil
}

// Lists all keys in stored order
func Keys(path string) (keys []string, err error) {
	err = withStore(path, func(b *bolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Entry count and the shape of the first stored entry, for inspection
func Info(path string) (count int, shape []int, err error) {
	err = withStore(path, func(b *bolt.Bucket) error {
		count = b.Stats().KeyN
		if count == 0 {
			return nil
		}
		_, v := b.Cursor().First()
		shape, _, err = decodeEntry(v)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return count, shape, nil
}
