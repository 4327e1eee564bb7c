// Package memory implements a persistent translation memory backed by
// bbolt. Texts already translated in earlier runs are reused instead of
// being sent to the engine again, so repeated extract/translate cycles over
// the same binaries cost one network call per distinct string.
//
// Layout: one bucket per "src→dst" language pair, keyed by the MD5 digest
// of the source text, holding the raw translated text.
package memory

import (
	"crypto/md5"
	"fmt"

	"go.etcd.io/bbolt"
)

// Store is a translation memory database. A nil *Store is a valid no-op
// memory: lookups miss and puts are dropped.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the translation memory at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening translation memory: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func pairBucket(src, dst string) []byte {
	return []byte(src + "→" + dst)
}

func textKey(text string) []byte {
	sum := md5.Sum([]byte(text))
	return sum[:]
}

// Get looks up a remembered translation for text in the given language
// pair. The second return value reports a hit.
func (s *Store) Get(text, src, dst string) (string, bool) {
	if s == nil {
		return "", false
	}
	var out string
	var found bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(pairBucket(src, dst))
		if b == nil {
			return nil
		}
		if v := b.Get(textKey(text)); v != nil {
			out = string(v)
			found = true
		}
		return nil
	})
	return out, found
}

// Put records a translation. Existing records for the same source text are
// overwritten; the newest translation wins.
func (s *Store) Put(text, translated, src, dst string) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(pairBucket(src, dst))
		if err != nil {
			return err
		}
		return b.Put(textKey(text), []byte(translated))
	})
}

// Len counts remembered translations for a language pair.
func (s *Store) Len(src, dst string) int {
	if s == nil {
		return 0
	}
	n := 0
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(pairBucket(src, dst)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n
}
