/*
Package query implements Atlas's query planner and cursor engine: request
validation, cost classification, SQL emission, plan verification against
pkg/embedded's schema, stable ordering, and opaque HMAC-signed pagination
cursors.

A GeneQueryRequest is validated and classified before any I/O runs — bad
input, over-budget cost, and fast-fail existence checks against
dataset_stats all happen in Validate, never inside the SQL round trip.
Once validated, Plan builds the exact SQL statement and EXPLAIN QUERY PLAN
is run against it before execution; a plan that resolves to a full table
scan the request didn't explicitly allow is rejected as a Policy error,
not executed and then regretted.

Cursors carry no database state. They are a signed, canonical encoding of
the last row returned plus a hash of the request that produced it, so a
cursor presented against a request that differs in any field other than
the cursor itself is rejected rather than silently resumed against the
wrong scan. The hash is taken over canonical JSON, so it does not depend
on field order.
*/
package query
