// Package store implements a bbolt backed archive of harness reports.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/jedisct1/go-spn/internal/report"
)

const (
	// DBFile is the archive file name inside the data directory.
	DBFile = "spn.db"

	metadataBucket = "metadata"
	reportsBucket  = "reports"
	versionKey     = "version"
	dbVersion      = 0
)

// ErrNotFound is returned when no report has the requested ID.
var ErrNotFound = errors.New("store: report not found")

// Entry is an archived report and its sequence number.
type Entry struct {
	ID     uint64
	Report *report.Report
}

// Store is an append only report archive.
type Store struct {
	db *bolt.DB
}

// Close flushes and closes the archive.
func (s *Store) Close() error {
	if err := s.db.Sync(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// Put appends r to the archive and returns its ID. IDs start at 1 and
// increase monotonically.
func (s *Store) Put(r *report.Report) (uint64, error) {
	b, err := r.MarshalCBOR()
	if err != nil {
		return 0, err
	}

	var id uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(reportsBucket))

		// Allocate a unique identifier for this report.
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		id = seq
		return bkt.Put(idKey(seq), b)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the report with the given ID.
func (s *Store) Get(id uint64) (*report.Report, error) {
	r := new(report.Report)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(reportsBucket)).Get(idKey(id))
		if b == nil {
			return ErrNotFound
		}
		return r.UnmarshalCBOR(b)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List returns every archived report, oldest first.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(reportsBucket)).Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if len(k) != 8 {
				return fmt.Errorf("store: malformed key: %x", k)
			}
			r := new(report.Report)
			if err := r.UnmarshalCBOR(v); err != nil {
				return err
			}
			entries = append(entries, Entry{ID: binary.BigEndian.Uint64(k), Report: r})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Len returns the number of archived reports.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(reportsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func idKey(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}

// Open creates (or loads) the archive in the directory dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: failed to create data directory: %v", err)
	}

	db, err := bolt.Open(filepath.Join(dataDir, DBFile), 0600, nil)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}

	if err = s.db.Update(func(tx *bolt.Tx) error {
		// Ensure that all the buckets exists, and grab the metadata bucket.
		bkt, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err = tx.CreateBucketIfNotExists([]byte(reportsBucket)); err != nil {
			return err
		}

		if b := bkt.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != dbVersion {
				return fmt.Errorf("store: incompatible version: %x", b)
			}
			return nil
		}
		return bkt.Put([]byte(versionKey), []byte{dbVersion})
	}); err != nil {
		s.db.Close()
		return nil, err
	}
	return s, nil
}
