package dataset

import (
	"fmt"

	"github.com/bijux/atlas/pkg/canon"
)

// ManifestLock binds a manifest byte sequence to a database byte sequence
// by SHA-256, so that a manifest can never silently drift out of sync
// with the database file it describes.
type ManifestLock struct {
	SchemaVersion  int    `json:"schema_version"`
	ManifestSHA256 string `json:"manifest_sha256"`
	SqliteSHA256   string `json:"sqlite_sha256"`
}

// Validate checks that l's recorded digests are well-formed and that they
// equal the SHA-256 of manifestBytes and dbBytes respectively.
func (l ManifestLock) Validate(manifestBytes, dbBytes []byte) error {
	if !isHex64(l.ManifestSHA256) {
		return fmt.Errorf("manifest lock: manifest_sha256 must be 64 lowercase hex characters, got %q", l.ManifestSHA256)
	}
	if !isHex64(l.SqliteSHA256) {
		return fmt.Errorf("manifest lock: sqlite_sha256 must be 64 lowercase hex characters, got %q", l.SqliteSHA256)
	}

	gotManifest := canon.SHA256Hex(manifestBytes)
	if gotManifest != l.ManifestSHA256 {
		return fmt.Errorf("manifest lock: manifest hash mismatch: lock says %s, bytes hash to %s", l.ManifestSHA256, gotManifest)
	}

	gotDB := canon.SHA256Hex(dbBytes)
	if gotDB != l.SqliteSHA256 {
		return fmt.Errorf("manifest lock: database hash mismatch: lock says %s, bytes hash to %s", l.SqliteSHA256, gotDB)
	}

	return nil
}
