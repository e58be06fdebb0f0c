/*
Package atlaserr defines Atlas's shared error taxonomy: a small, closed set
of Kind values every component (pkg/query, pkg/cache, pkg/catalog,
pkg/gate) dispatches on, wrapped around whatever underlying cause
produced the failure.

Components differ in which Kind values they can produce — pkg/query never
returns IntegrityFailure, pkg/cache never returns Cursor — but callers at
the pkg/atlas boundary only ever need to switch on Kind, never on a
component-specific error type, to decide an HTTP status or a retry.

Retryable is carried alongside Kind because the same Kind can mean
different things in different contexts: a cache Timeout is retryable, but
a query Policy rejection never is, regardless of Kind groupings that
might otherwise suggest it.
*/
package atlaserr
