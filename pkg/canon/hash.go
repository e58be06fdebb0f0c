package canon

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// StableHashHex returns the lowercase hex SHA-256 digest of v's canonical
// bytes. Two values that canonicalize identically always produce the same
// hash, independent of map key order or field-set order.
func StableHashHex(v any) (string, error) {
	b, err := CanonicalBytes(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}

// HMAC returns the raw HMAC-SHA-256 of payload under secret.
func HMAC(secret, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// HMACEqual reports whether mac is the valid HMAC-SHA-256 of payload under
// secret, compared in constant time.
func HMACEqual(secret, payload, mac []byte) bool {
	expected := HMAC(secret, payload)
	return hmac.Equal(expected, mac)
}
