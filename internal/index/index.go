// Package index persists fuzzy digests by id and answers near-duplicate
// queries against them.
package index

import (
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/hoangsonww/fuzzyhash/internal/compression"
	"github.com/hoangsonww/fuzzyhash/internal/ctph"
	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
	"github.com/hoangsonww/fuzzyhash/internal/monitoring"
	"github.com/hoangsonww/fuzzyhash/internal/persistence"
)

// Kind separates byte digests from token digests. Entries of different
// kinds are never compared.
type Kind string

const (
	KindBytes  Kind = "bytes"
	KindTokens Kind = "tokens"
)

func (k Kind) bucket() ([]byte, error) {
	switch k {
	case KindBytes:
		return []byte(persistence.BucketDigests), nil
	case KindTokens:
		return []byte(persistence.BucketTokenDigests), nil
	default:
		return nil, fmt.Errorf("unknown digest kind %q", k)
	}
}

// Entry is one stored digest.
type Entry struct {
	ID     string    `json:"-"`
	Kind   Kind      `json:"-"`
	Digest string    `json:"digest"`
	Added  time.Time `json:"added"`
}

// Match is a query hit.
type Match struct {
	ID     string
	Digest string
	Score  float64
}

type Options struct {
	// Compress stores new records zstd-compressed. Records are read back
	// correctly whatever the setting was when they were written.
	Compress bool
}

type Index struct {
	db     *persistence.DB
	comp   *compression.Compressor
	opts   Options
	logger *monitoring.Logger
}

// Open opens or creates the index database at path.
func Open(path string, opts Options) (*Index, error) {
	db, err := persistence.Open(path)
	if err != nil {
		return nil, fherrors.WrapError(fherrors.ErrCodeIndexFailed, "failed to open index "+path, err)
	}
	comp, err := compression.DefaultCompressor()
	if err != nil {
		db.Close()
		return nil, fherrors.WrapError(fherrors.ErrCodeIndexFailed, "failed to create compressor", err)
	}
	return &Index{
		db:     db,
		comp:   comp,
		opts:   opts,
		logger: monitoring.WithField("component", "index"),
	}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	ix.comp.Close()
	return ix.db.Close()
}

// Put stores digest under id, replacing any previous entry of the same kind.
// The digest must parse strictly.
func (ix *Index) Put(id string, kind Kind, digest string) error {
	if id == "" {
		return fherrors.NewError(fherrors.ErrCodeIndexFailed, "entry id must not be empty")
	}
	if _, err := ctph.ParseDigest(digest); err != nil {
		return err
	}
	name, err := kind.bucket()
	if err != nil {
		return fherrors.WrapError(fherrors.ErrCodeIndexFailed, "put "+id, err)
	}

	value, err := ix.encode(Entry{Digest: digest, Added: time.Now().UTC()})
	if err != nil {
		return fherrors.WrapError(fherrors.ErrCodeIndexFailed, "encode "+id, err)
	}

	err = ix.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(name).Put([]byte(id), value)
	})
	if err != nil {
		monitoring.GetMetrics().RecordError("index")
		return fherrors.WrapError(fherrors.ErrCodeIndexFailed, "put "+id, err)
	}

	monitoring.GetMetrics().RecordIndexWrite()
	ix.logger.WithFields(map[string]interface{}{"id": id, "kind": kind}).Debug("stored digest")
	return nil
}

// Get returns the entry stored under id.
func (ix *Index) Get(id string, kind Kind) (Entry, error) {
	name, err := kind.bucket()
	if err != nil {
		return Entry{}, fherrors.WrapError(fherrors.ErrCodeIndexFailed, "get "+id, err)
	}

	var entry Entry
	var found bool
	err = ix.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(name).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		var derr error
		entry, derr = ix.decode(v)
		return derr
	})
	if err != nil {
		return Entry{}, fherrors.WrapError(fherrors.ErrCodeIndexFailed, "get "+id, err)
	}
	if !found {
		return Entry{}, fherrors.NewEntryNotFoundError(id)
	}
	entry.ID, entry.Kind = id, kind
	return entry, nil
}

// Delete removes id. Removing a missing id is an error.
func (ix *Index) Delete(id string, kind Kind) error {
	name, err := kind.bucket()
	if err != nil {
		return fherrors.WrapError(fherrors.ErrCodeIndexFailed, "delete "+id, err)
	}

	var found bool
	err = ix.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(name)
		if b.Get([]byte(id)) == nil {
			return nil
		}
		found = true
		return b.Delete([]byte(id))
	})
	if err != nil {
		return fherrors.WrapError(fherrors.ErrCodeIndexFailed, "delete "+id, err)
	}
	if !found {
		return fherrors.NewEntryNotFoundError(id)
	}
	ix.logger.WithField("id", id).Debug("deleted digest")
	return nil
}

// List returns every entry of kind in id order.
func (ix *Index) List(kind Kind) ([]Entry, error) {
	var entries []Entry
	err := ix.forEach(kind, func(e Entry) {
		entries = append(entries, e)
	})
	return entries, err
}

// Query returns entries of kind whose similarity to digest is positive and
// at least threshold, best first with ties broken by id. A positive limit
// caps the number of matches.
func (ix *Index) Query(digest string, kind Kind, threshold float64, limit int) ([]Match, error) {
	q, err := ctph.ParseDigest(digest)
	if err != nil {
		return nil, err
	}
	monitoring.GetMetrics().RecordIndexQuery()

	var matches []Match
	var skipped int
	err = ix.forEach(kind, func(e Entry) {
		d, err := ctph.ParseDigest(e.Digest)
		if err != nil {
			skipped++
			return
		}
		monitoring.GetMetrics().RecordComparison()
		if score := q.Similarity(d); score > 0 && score >= threshold {
			matches = append(matches, Match{ID: e.ID, Digest: e.Digest, Score: score})
		}
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		ix.logger.WithField("skipped", skipped).Warn("ignored unparsable stored digests")
	}

	SortMatches(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SortMatches orders matches by descending score, then ascending id.
func SortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
}

func (ix *Index) forEach(kind Kind, fn func(Entry)) error {
	name, err := kind.bucket()
	if err != nil {
		return fherrors.WrapError(fherrors.ErrCodeIndexFailed, "scan", err)
	}
	err = ix.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(name).ForEach(func(k, v []byte) error {
			e, err := ix.decode(v)
			if err != nil {
				return fmt.Errorf("entry %s: %w", k, err)
			}
			e.ID, e.Kind = string(k), kind
			fn(e)
			return nil
		})
	})
	if err != nil {
		return fherrors.WrapError(fherrors.ErrCodeIndexFailed, "scan", err)
	}
	return nil
}

func (ix *Index) encode(e Entry) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	if !ix.opts.Compress {
		return raw, nil
	}
	return ix.comp.Compress(raw)
}

// decode copies out of v, which bolt only guarantees during the transaction.
func (ix *Index) decode(v []byte) (Entry, error) {
	raw := v
	if compression.Detect(v) == compression.Zstd {
		var err error
		if raw, err = ix.comp.Decompress(v); err != nil {
			return Entry{}, err
		}
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}
