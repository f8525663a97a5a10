package persistence

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	BucketDigests      = "digests"
	BucketTokenDigests = "token_digests"
	BucketMeta         = "meta"
)

// Buckets lists every bucket Open guarantees to exist.
var Buckets = []string{BucketDigests, BucketTokenDigests, BucketMeta}

type DB struct {
	db *bolt.DB
}

// Open opens or creates the bolt file at path. A second process holding the
// file lock makes Open fail after one second instead of blocking.
func Open(path string) (*DB, error) {
	b, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = b.Update(func(tx *bolt.Tx) error {
		for _, bucket := range Buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Close()
		return nil, err
	}
	return &DB{db: b}, nil
}

func (d *DB) View(fn func(tx *bolt.Tx) error) error {
	return d.db.View(fn)
}

func (d *DB) Update(fn func(tx *bolt.Tx) error) error {
	return d.db.Update(fn)
}

func (d *DB) Path() string {
	return d.db.Path()
}

func (d *DB) Close() error {
	return d.db.Close()
}
