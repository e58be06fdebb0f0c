package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/dataset"
)

var bucketCacheEntries = []byte("cache_entries")

// EntryRecord is the durable bookkeeping a Metastore keeps per cached
// dataset: the digests recorded at registration time, pin state, and the
// last access time. Manager writes these records but does not read them
// back at construction, so pinning and LRU ordering do not carry over a
// process restart. It deliberately does not store the manifest or DB bytes
// themselves — those live on disk under the dataset's own directory.
type EntryRecord struct {
	ManifestSHA256 string `json:"manifest_sha256"`
	SqliteSHA256   string `json:"sqlite_sha256"`
	Pinned         bool   `json:"pinned"`
	LastAccessUnix int64  `json:"last_access_unix"`
	SizeBytes      int64  `json:"size_bytes"`
}

// Metastore is the bbolt-backed record of every entry's digests and pin
// state, grounded on pkg/storage's BoltDB bucket-per-collection pattern.
type Metastore struct {
	db *bolt.DB
}

// OpenMetastore opens (creating if absent) the bbolt file at
// filepath.Join(diskRoot, "metastore.db").
func OpenMetastore(diskRoot string) (*Metastore, error) {
	path := filepath.Join(diskRoot, "metastore.db")
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.StoreError, "opening cache metastore", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCacheEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, atlaserr.Wrap(atlaserr.StoreError, "creating cache metastore bucket", err)
	}
	return &Metastore{db: db}, nil
}

// Close closes the underlying bbolt file.
func (m *Metastore) Close() error {
	return m.db.Close()
}

// Put upserts the record for id.
func (m *Metastore) Put(id dataset.DatasetId, rec EntryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return atlaserr.Wrap(atlaserr.StoreError, "marshaling cache entry record", err)
	}
	err = m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCacheEntries).Put([]byte(id.String()), data)
	})
	if err != nil {
		return atlaserr.Wrap(atlaserr.StoreError, "persisting cache entry record", err)
	}
	return nil
}

// Get returns the record for id, and whether it was present.
func (m *Metastore) Get(id dataset.DatasetId) (EntryRecord, bool, error) {
	var rec EntryRecord
	found := false
	err := m.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCacheEntries).Get([]byte(id.String()))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return EntryRecord{}, false, atlaserr.Wrap(atlaserr.StoreError, "reading cache entry record", err)
	}
	return rec, found, nil
}

// Delete removes id's record, if present.
func (m *Metastore) Delete(id dataset.DatasetId) error {
	err := m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCacheEntries).Delete([]byte(id.String()))
	})
	if err != nil {
		return atlaserr.Wrap(atlaserr.StoreError, "deleting cache entry record", err)
	}
	return nil
}

// All returns every persisted record, keyed by its DatasetId string form.
// Manager does not call it; NewManager starts from empty in-memory state.
func (m *Metastore) All() (map[string]EntryRecord, error) {
	out := map[string]EntryRecord{}
	err := m.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCacheEntries).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec EntryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding cache entry record %s: %w", k, err)
			}
			out[string(k)] = rec
		}
		return nil
	})
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.StoreError, "listing cache entry records", err)
	}
	return out, nil
}
