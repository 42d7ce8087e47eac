package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ppra-watch/tender-sentinel/internal/domain"
)

const tenderBucket = "tenders"

// boltStore implements Store backed by BoltDB. Each key is a normalized
// tender identity; the value is the tender JSON so the durable file stays
// inspectable. The set only grows: commits never overwrite existing keys.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create storage directory: %v", ErrStoreUnavailable, err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open bbolt db: %v", ErrStoreUnavailable, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(tenderBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init bucket: %v", ErrStoreUnavailable, err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Load returns all known tender identities.
func (b *boltStore) Load(ctx context.Context) (map[string]struct{}, error) {
	if b == nil || b.db == nil {
		return nil, fmt.Errorf("%w: store is not open", ErrStoreUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	known := make(map[string]struct{})
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tenderBucket))
		if bucket == nil {
			return fmt.Errorf("tender bucket missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			known[string(k)] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return known, nil
}

// Commit appends the tenders inside a single write transaction, so a reader
// observes either the pre-commit set or the fully committed one. Tenders
// whose identity already exists are skipped rather than overwritten.
func (b *boltStore) Commit(ctx context.Context, tenders []domain.Tender) error {
	if b == nil || b.db == nil {
		return fmt.Errorf("%w: store is not open", ErrCommitFailed)
	}
	if len(tenders) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tenderBucket))
		if bucket == nil {
			return fmt.Errorf("tender bucket missing")
		}
		for _, t := range tenders {
			id := t.Identity()
			if id == "" {
				return fmt.Errorf("tender with empty identity cannot be committed")
			}
			if bucket.Get([]byte(id)) != nil {
				continue
			}
			payload, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("marshal tender %s: %w", id, err)
			}
			if err := bucket.Put([]byte(id), payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return nil
}
