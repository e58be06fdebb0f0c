package atlaserr

import (
	"errors"
	"fmt"
)

// Kind classifies an Atlas error for dispatch at the service boundary.
type Kind int

const (
	// Validation marks a request that is malformed on its face.
	Validation Kind = iota
	// Policy marks a request that is well-formed but forbidden by a
	// configured limit (full scan disallowed, cost budget exceeded).
	Policy
	// Cursor marks a pagination cursor that failed MAC verification or no
	// longer matches the request it was issued against.
	Cursor
	// NotFound marks a resolvable reference (dataset, gene) that does not
	// exist.
	NotFound
	// Conflict marks a publish of an already-published DatasetId under
	// different content — the immutability gate rejecting a republish.
	Conflict
	// Upstream marks a failure surfaced from the embedded database or a
	// federated registry source, not from Atlas's own logic.
	Upstream
	// IntegrityFailure marks an on-disk artifact whose digest no longer
	// matches its manifest.
	IntegrityFailure
	// CachedOnlyMiss marks a cache lookup that would require a fetch, but
	// the cache is running in cached-only mode.
	CachedOnlyMiss
	// Timeout marks an operation that exceeded its deadline.
	Timeout
	// PoolSaturated marks a connection pool that could not admit a new
	// borrower within its wait budget.
	PoolSaturated
	// StoreError marks a failure in the underlying artifact store (catalog
	// fetch, manifest write, shard read) not otherwise classified above.
	StoreError
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Policy:
		return "policy"
	case Cursor:
		return "cursor"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Upstream:
		return "upstream"
	case IntegrityFailure:
		return "integrity_failure"
	case CachedOnlyMiss:
		return "cached_only_miss"
	case Timeout:
		return "timeout"
	case PoolSaturated:
		return "pool_saturated"
	case StoreError:
		return "store_error"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every Atlas component.
type Error struct {
	Kind      Kind
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// defaultRetryable implements the §7 propagation rule enforced at the
// pkg/atlas surface boundary: Timeout, PoolSaturated, and Upstream always
// carry Retryable = true, independent of which constructor a call site
// used to build the error.
func defaultRetryable(kind Kind) bool {
	switch kind {
	case Timeout, PoolSaturated, Upstream:
		return true
	default:
		return false
	}
}

// New constructs an Error of the given kind. Retryable is set per
// defaultRetryable; use WrapRetryable to force it true for other kinds.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Retryable: defaultRetryable(kind)}
}

// Wrap constructs an Error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Retryable: defaultRetryable(kind)}
}

// WrapRetryable is Wrap with Retryable forced true, for a kind that
// isn't retryable by default but this particular cause warrants a retry.
func WrapRetryable(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Retryable: true}
}

// Is reports whether err is an *Error of the given kind, looking through
// any wrapping via errors.As.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf extracts the Kind of err, defaulting to Upstream for an error
// that did not originate from this package — an unclassified failure is
// treated as an opaque upstream fault rather than silently matching
// Validation or NotFound dispatch.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Upstream
}
