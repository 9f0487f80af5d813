// Copyright 2024 Haiku, Inc. All rights reserved.
// Distributed under the terms of the MIT License.

// Package store remembers which revision of each change the bot has
// already reviewed, so polling does not post the same review twice.
package store

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

var reviewedBucket = []byte("reviewed")

// A Store is a persistent record of reviewed revisions, keyed by change
// ID. It is safe for concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(reviewedBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the store and its file lock.
func (s *Store) Close() error { return s.db.Close() }

// MarkReviewed records that the given revision of a change has been
// reviewed, replacing any earlier revision of the same change.
func (s *Store) MarkReviewed(changeID, revision string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(reviewedBucket).Put([]byte(changeID), []byte(revision))
	})
}

// IsReviewed reports whether the given revision of a change has already
// been reviewed. A change reviewed at an older revision counts as not
// reviewed, so a new patch set gets a fresh review.
func (s *Store) IsReviewed(changeID, revision string) (bool, error) {
	var reviewed bool
	err := s.db.View(func(tx *bolt.Tx) error {
		stored := tx.Bucket(reviewedBucket).Get([]byte(changeID))
		reviewed = stored != nil && string(stored) == revision
		return nil
	})
	return reviewed, err
}
