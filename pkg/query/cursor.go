package query

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/canon"
)

var b64 = base64.RawURLEncoding

// CursorPayload is the canonically-encoded, HMAC-signed content of a
// pagination cursor. LastSeqid/LastStart are only meaningful for
// OrderRegion; LastGeneID is always the tie-break.
type CursorPayload struct {
	Order      Order  `json:"order"`
	LastSeqid  string `json:"last_seqid,omitempty"`
	LastStart  int64  `json:"last_start,omitempty"`
	LastGeneID string `json:"last_gene_id"`
	QueryHash  string `json:"query_hash"`
}

// QueryHash implements §4.D.4: the SHA-256 of the canonical JSON of the
// request with its cursor field cleared, so two requests differing only
// in cursor token share a hash.
func QueryHash(r GeneQueryRequest) (string, error) {
	r.Cursor = ""
	return canon.StableHashHex(r)
}

// EncodeCursor implements the §4.D.4 encoding:
// base64url_nopad(canonical(payload)) "." base64url_nopad(hmac_sha256(secret, payload)).
func EncodeCursor(secret []byte, payload CursorPayload) (string, error) {
	payloadBytes, err := canon.CanonicalBytes(payload)
	if err != nil {
		return "", atlaserr.Wrap(atlaserr.Validation, "encoding cursor payload", err)
	}
	mac := canon.HMAC(secret, payloadBytes)
	return b64.EncodeToString(payloadBytes) + "." + b64.EncodeToString(mac), nil
}

// DecodeCursor implements §4.D.4 decoding: MAC verification in constant
// time, then the request-consistency checks (query_hash, order, and the
// fields required for that order mode). Any failure is a Cursor error,
// distinct from Validation and Policy.
func DecodeCursor(secret []byte, token string, r GeneQueryRequest) (CursorPayload, error) {
	var payload CursorPayload

	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return payload, atlaserr.New(atlaserr.Cursor, "malformed cursor token")
	}

	payloadBytes, err := b64.DecodeString(parts[0])
	if err != nil {
		return payload, atlaserr.Wrap(atlaserr.Cursor, "decoding cursor payload", err)
	}
	mac, err := b64.DecodeString(parts[1])
	if err != nil {
		return payload, atlaserr.Wrap(atlaserr.Cursor, "decoding cursor mac", err)
	}

	if !canon.HMACEqual(secret, payloadBytes, mac) {
		return payload, atlaserr.New(atlaserr.Cursor, "cursor mac verification failed")
	}

	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return payload, atlaserr.Wrap(atlaserr.Cursor, "unmarshaling cursor payload", err)
	}

	wantHash, err := QueryHash(r)
	if err != nil {
		return payload, atlaserr.Wrap(atlaserr.Validation, "computing query hash", err)
	}
	if payload.QueryHash != wantHash {
		return payload, atlaserr.New(atlaserr.Cursor, "cursor query_hash does not match request")
	}

	if payload.Order != r.orderFor() {
		return payload, atlaserr.New(atlaserr.Cursor, "cursor order does not match request order")
	}

	if payload.Order == OrderRegion && (payload.LastSeqid == "" || payload.LastStart == 0) {
		return payload, atlaserr.New(atlaserr.Cursor, "cursor missing seqid/start required for region order")
	}
	if payload.LastGeneID == "" {
		return payload, atlaserr.New(atlaserr.Cursor, "cursor missing last_gene_id")
	}

	return payload, nil
}

// NextCursor builds the cursor for the page following last, per §4.D.6.
func NextCursor(secret []byte, r GeneQueryRequest, last GeneRow) (string, error) {
	hash, err := QueryHash(r)
	if err != nil {
		return "", atlaserr.Wrap(atlaserr.Validation, "computing query hash", err)
	}

	payload := CursorPayload{
		Order:      r.orderFor(),
		LastGeneID: last.GeneID,
		QueryHash:  hash,
	}
	if payload.Order == OrderRegion {
		payload.LastSeqid = last.Seqid
		payload.LastStart = last.Start
	}

	return EncodeCursor(secret, payload)
}
