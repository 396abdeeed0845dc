package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

const keyBucket = "access_keys"

// boltJournal implements a Journal backed by BoltDB.
type boltJournal struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Journal.
func openBolt(path string) (Journal, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(keyBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltJournal{db: db}, nil
}

// Close closes the BoltDB journal.
func (b *boltJournal) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// RecordKey upserts the entry for the key's id.
func (b *boltJournal) RecordKey(entry Entry) error {
	if b == nil || b.db == nil {
		return nil
	}
	if entry.ID == "" {
		return fmt.Errorf("journal entry has no key id")
	}
	if entry.SeenAt.IsZero() {
		entry.SeenAt = time.Now().UTC()
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(keyBucket))
		if bucket == nil {
			return fmt.Errorf("access key bucket missing")
		}
		return bucket.Put([]byte(entry.ID), value)
	})
}

// DeleteKey forgets the entry for id. Deleting an unknown id is not an error.
func (b *boltJournal) DeleteKey(id string) error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(keyBucket))
		if bucket == nil {
			return fmt.Errorf("access key bucket missing")
		}
		return bucket.Delete([]byte(id))
	})
}

// Keys returns all recorded entries sorted by key id.
func (b *boltJournal) Keys() ([]Entry, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	var entries []Entry
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(keyBucket))
		if bucket == nil {
			return fmt.Errorf("access key bucket missing")
		}
		return bucket.ForEach(func(_, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode journal entry: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
