/*
Package canon implements Atlas's canonical encoding: a deterministic byte
form for any JSON-shaped value, plus the hash and MAC primitives built on
top of it.

Every hash, signature, and cursor token in Atlas is computed over the
canonical bytes of some value rather than over whatever byte sequence
happened to come off the wire. Two semantically equal values — regardless
of map key order, the order fields were set in, or which encoder produced
them — always canonicalize to the same bytes, so they always hash and
sign the same way.

# Canonical form

  - Object keys are sorted lexicographically (byte-wise on the UTF-8 key).
  - No insignificant whitespace: no spaces, newlines, or trailing commas.
  - Integers, strings, and booleans encode the same way encoding/json
    already encodes them once whitespace is stripped.
  - Floating point values must be finite; NaN and +/-Inf are rejected.
  - nil / null encodes as the literal `null`.

# Hashing and signing

All hashes in Atlas are SHA-256; all MACs are HMAC-SHA-256. StableHashHex
hashes the canonical bytes of a value and returns the lowercase hex digest.
HMAC signs an arbitrary byte slice (already-canonical payload bytes) under
a caller-supplied secret.

# Usage

	b, err := canon.CanonicalBytes(map[string]any{"b": 1, "a": 2})
	// b == []byte(`{"a":2,"b":1}`)

	h, err := canon.StableHashHex(manifest)
	// h == sha256 hex digest of manifest's canonical bytes
*/
package canon
