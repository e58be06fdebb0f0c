package dataset

import (
	"fmt"
	"strings"
)

// DatasetId uniquely and immutably identifies one published dataset
// version: a release, a species, and a genome assembly. All three fields
// must be non-empty, URL-safe strings (no "/" — they become directory
// path segments).
type DatasetId struct {
	Release  string
	Species  string
	Assembly string
}

// Validate reports whether every field of id is a non-empty, URL-safe
// string.
func (id DatasetId) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"release", id.Release},
		{"species", id.Species},
		{"assembly", id.Assembly},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("dataset id: %s must not be empty", f.name)
		}
		if strings.ContainsAny(f.value, "/\\:") {
			return fmt.Errorf("dataset id: %s %q is not URL-safe", f.name, f.value)
		}
	}
	return nil
}

// String returns the canonical form used as a map key and in sort
// comparisons: "release/species/assembly".
func (id DatasetId) String() string {
	return id.Release + "/" + id.Species + "/" + id.Assembly
}

// Less reports whether id sorts strictly before other, by canonical
// string form.
func (id DatasetId) Less(other DatasetId) bool {
	return id.String() < other.String()
}

// Equal reports whether id and other identify the same dataset.
func (id DatasetId) Equal(other DatasetId) bool {
	return id == other
}
