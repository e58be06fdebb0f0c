package cache

import (
	"context"
	"database/sql"

	"golang.org/x/sync/semaphore"

	"github.com/bijux/atlas/pkg/atlaserr"
)

// Handle is a leased, read-only connection to one dataset's embedded DB.
// Release must be called exactly once, however the open was used,
// including on every error path — the semaphore it holds is not
// reclaimed otherwise.
type Handle struct {
	DB      *sql.DB
	release func()
}

// Release returns the handle to its pool. Safe to call more than once;
// only the first call has effect.
func (h *Handle) Release() {
	if h.release == nil {
		return
	}
	release := h.release
	h.release = nil
	release()
}

// pool bounds concurrent access to one dataset's *sql.DB with its own
// weighted semaphore, underneath the manager's global semaphore — each
// acquire takes one global slot first, then one per-dataset slot, and
// release gives both back in reverse order. §4.F.2's "each pool is its
// own bounded semaphore + queue" (§5).
type pool struct {
	db        *sql.DB
	global    *semaphore.Weighted
	perEntry  *semaphore.Weighted
	closeOnce func() error
}

func newPool(db *sql.DB, global *semaphore.Weighted, maxPerDataset int64) *pool {
	return &pool{
		db:       db,
		global:   global,
		perEntry: semaphore.NewWeighted(maxPerDataset),
		closeOnce: func() error {
			return db.Close()
		},
	}
}

// acquire blocks until both the global and per-dataset semaphores have a
// free slot, or ctx is done. A ctx expiry here is reported as
// PoolSaturated, not the generic Timeout of §4.F.6 — the caller's open
// deadline ran out specifically while waiting on a connection cap, which
// is a distinguishable condition worth a distinguishable error kind.
func (p *pool) acquire(ctx context.Context) (*Handle, error) {
	if err := p.global.Acquire(ctx, 1); err != nil {
		return nil, atlaserr.Wrap(atlaserr.PoolSaturated, "waiting for a global connection slot", err)
	}
	if err := p.perEntry.Acquire(ctx, 1); err != nil {
		p.global.Release(1)
		return nil, atlaserr.Wrap(atlaserr.PoolSaturated, "waiting for a per-dataset connection slot", err)
	}
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		p.perEntry.Release(1)
		p.global.Release(1)
	}
	return &Handle{DB: p.db, release: release}, nil
}

// close closes the underlying DB handle. Called once, when the owning
// entry is evicted or the Manager is closed.
func (p *pool) close() error {
	return p.closeOnce()
}
