package atlaserr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(StoreError, "writing shard", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	if got := err.Error(); got == "" {
		t.Errorf("Error() = empty string")
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := New(Cursor, "mac mismatch")
	wrapped := fmt.Errorf("decode cursor: %w", err)

	if !Is(wrapped, Cursor) {
		t.Errorf("Is(wrapped, Cursor) = false, want true")
	}
	if Is(wrapped, Policy) {
		t.Errorf("Is(wrapped, Policy) = true, want false")
	}
}

func TestKindOfDefaultsToUpstreamForForeignError(t *testing.T) {
	foreign := errors.New("some other package's error")
	if got := KindOf(foreign); got != Upstream {
		t.Errorf("KindOf(foreign) = %v, want Upstream", got)
	}
}

func TestKindOfExtractsWrappedKind(t *testing.T) {
	err := New(NotFound, "gene not found")
	if got := KindOf(err); got != NotFound {
		t.Errorf("KindOf(err) = %v, want NotFound", got)
	}
}

func TestWrapRetryableSetsFlag(t *testing.T) {
	err := WrapRetryable(Timeout, "connection pool wait", errors.New("deadline exceeded"))
	if !err.Retryable {
		t.Errorf("Retryable = false, want true")
	}
}

func TestTimeoutPoolSaturatedUpstreamAreRetryableByDefault(t *testing.T) {
	for _, kind := range []Kind{Timeout, PoolSaturated, Upstream} {
		if got := New(kind, "boundary check").Retryable; !got {
			t.Errorf("New(%v).Retryable = false, want true", kind)
		}
		if got := Wrap(kind, "boundary check", errors.New("cause")).Retryable; !got {
			t.Errorf("Wrap(%v).Retryable = false, want true", kind)
		}
	}
}

func TestOtherKindsAreNotRetryableByDefault(t *testing.T) {
	for _, kind := range []Kind{Validation, Policy, Cursor, NotFound, Conflict, IntegrityFailure, CachedOnlyMiss, StoreError} {
		if got := New(kind, "boundary check").Retryable; got {
			t.Errorf("New(%v).Retryable = true, want false", kind)
		}
	}
}
