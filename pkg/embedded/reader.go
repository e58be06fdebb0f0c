package embedded

import (
	"database/sql"
	"fmt"
)

// readPragmas are the §4.F.1.d enforced profile for a mounted, read-only
// dataset connection: queries only, no fsync, temp structures in memory.
var readPragmas = []string{
	"PRAGMA query_only=1",
	"PRAGMA synchronous=0",
	"PRAGMA temp_store=MEMORY",
}

// OpenReadOnly opens the SQLite file at path with the enforced read-only
// pragma profile. The profile is carried in the DSN, so every connection
// the pool opens gets it, and any write attempted through the returned
// *sql.DB fails because of query_only=1, independent of OS-level file
// permissions.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)&_pragma=synchronous(0)&_pragma=temp_store(MEMORY)")
	if err != nil {
		return nil, fmt.Errorf("embedded: open read-only %s: %w", path, err)
	}
	for _, pragma := range readPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("embedded: %s: %w", pragma, err)
		}
	}
	return db, nil
}
