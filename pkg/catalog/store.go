package catalog

import (
	"fmt"
	"os"
	"sync"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/canon"
	"github.com/bijux/atlas/pkg/dataset"
)

// Store is the content-addressed publish boundary named in §3's
// immutability invariant: once a DatasetId is published, replacing it
// with different bytes is a Conflict, never a silent overwrite.
type Store struct {
	root string

	mu     sync.Mutex
	digest map[string][2]string // DatasetId string -> [manifestDigest, dbDigest]
}

// NewStore opens a Store rooted at root. Existing published digests are
// not pre-loaded; they are recorded the first time this process's Put
// observes them, and every Put also re-reads on-disk bytes directly, so a
// fresh process still detects a conflict against what's already on disk.
func NewStore(root string) *Store {
	return &Store{root: root, digest: map[string][2]string{}}
}

// Put writes manifestBytes and dbBytes for id, atomically, unless id was
// already published under different bytes — in which case it returns a
// Conflict error and leaves the existing published artifact untouched.
func (s *Store) Put(id dataset.DatasetId, manifestBytes, dbBytes []byte) error {
	manifestDigest := canon.SHA256Hex(manifestBytes)
	dbDigest := canon.SHA256Hex(dbBytes)

	paths := dataset.NewArtifactPaths(s.root, id)

	existingManifest, err := os.ReadFile(paths.ManifestJSON)
	if err == nil {
		existingDigest := canon.SHA256Hex(existingManifest)
		existingDB, dbErr := os.ReadFile(paths.EmbeddedDB)
		existingDBDigest := ""
		if dbErr == nil {
			existingDBDigest = canon.SHA256Hex(existingDB)
		}
		if existingDigest != manifestDigest || existingDBDigest != dbDigest {
			return atlaserr.New(atlaserr.Conflict,
				fmt.Sprintf("immutability gate rejected publish: %s already published with different content", id))
		}
		// identical republish is a no-op, not a conflict.
		s.recordDigest(id, manifestDigest, dbDigest)
		return nil
	} else if !os.IsNotExist(err) {
		return atlaserr.Wrap(atlaserr.StoreError, "reading existing manifest", err)
	}

	if err := os.MkdirAll(paths.DatasetDir, 0o755); err != nil {
		return atlaserr.Wrap(atlaserr.StoreError, "creating dataset directory", err)
	}
	if err := os.MkdirAll(paths.DerivedDir, 0o755); err != nil {
		return atlaserr.Wrap(atlaserr.StoreError, "creating derived directory", err)
	}

	if err := writeAtomic(paths.ManifestJSON, manifestBytes); err != nil {
		return atlaserr.Wrap(atlaserr.StoreError, "writing manifest", err)
	}
	if err := writeAtomic(paths.EmbeddedDB, dbBytes); err != nil {
		return atlaserr.Wrap(atlaserr.StoreError, "writing embedded db", err)
	}

	s.recordDigest(id, manifestDigest, dbDigest)
	return nil
}

func (s *Store) recordDigest(id dataset.DatasetId, manifestDigest, dbDigest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digest[id.String()] = [2]string{manifestDigest, dbDigest}
}

// writeAtomic implements the write-to-temp-then-rename pattern §4.F.1.c
// and this store's own publish both rely on: a reader never observes a
// partially written file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
