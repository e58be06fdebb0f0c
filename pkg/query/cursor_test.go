package query

import (
	"testing"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestQueryHashIgnoresCursorField(t *testing.T) {
	base := GeneQueryRequest{Biotype: "protein_coding", PageSize: 10}
	withCursor := base
	withCursor.Cursor = "some-token"

	h1, err := QueryHash(base)
	if err != nil {
		t.Fatalf("QueryHash() error = %v", err)
	}
	h2, err := QueryHash(withCursor)
	if err != nil {
		t.Fatalf("QueryHash() error = %v", err)
	}
	if h1 != h2 {
		t.Errorf("QueryHash differs by cursor field: %s vs %s", h1, h2)
	}
}

func TestEncodeDecodeCursorRoundTrip(t *testing.T) {
	r := GeneQueryRequest{Region: &RegionFilter{Seqid: "17", Start: 1, End: 1000}, PageSize: 10}
	last := GeneRow{GeneID: "ENSG002", Seqid: "17", Start: 300}

	token, err := NextCursor(testSecret, r, last)
	if err != nil {
		t.Fatalf("NextCursor() error = %v", err)
	}

	r2 := r
	r2.Cursor = token
	payload, err := DecodeCursor(testSecret, token, r2)
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if payload.LastGeneID != "ENSG002" || payload.LastSeqid != "17" || payload.LastStart != 300 {
		t.Errorf("DecodeCursor() payload = %+v, want last row fields preserved", payload)
	}
}

func TestDecodeCursorRejectsTamperedMAC(t *testing.T) {
	r := GeneQueryRequest{GeneID: "", Biotype: "protein_coding", PageSize: 10}
	last := GeneRow{GeneID: "ENSG002"}

	token, err := NextCursor(testSecret, r, last)
	if err != nil {
		t.Fatalf("NextCursor() error = %v", err)
	}

	tampered := token[:len(token)-1] + "x"
	if _, err := DecodeCursor(testSecret, tampered, r); err == nil {
		t.Fatalf("DecodeCursor() error = nil, want mac verification failure")
	}
}

func TestDecodeCursorRejectsMismatchedRequest(t *testing.T) {
	r := GeneQueryRequest{Biotype: "protein_coding", PageSize: 10}
	last := GeneRow{GeneID: "ENSG002"}

	token, err := NextCursor(testSecret, r, last)
	if err != nil {
		t.Fatalf("NextCursor() error = %v", err)
	}

	other := GeneQueryRequest{Biotype: "miRNA", PageSize: 10}
	if _, err := DecodeCursor(testSecret, token, other); err == nil {
		t.Fatalf("DecodeCursor() error = nil, want query_hash mismatch")
	}
}

func TestDecodeCursorRejectsOrderMismatch(t *testing.T) {
	regionReq := GeneQueryRequest{Region: &RegionFilter{Seqid: "17", Start: 1, End: 1000}, PageSize: 10}
	last := GeneRow{GeneID: "ENSG002", Seqid: "17", Start: 300}

	token, err := NextCursor(testSecret, regionReq, last)
	if err != nil {
		t.Fatalf("NextCursor() error = %v", err)
	}

	geneIDOrderReq := GeneQueryRequest{Biotype: "protein_coding", PageSize: 10}
	if _, err := DecodeCursor(testSecret, token, geneIDOrderReq); err == nil {
		t.Fatalf("DecodeCursor() error = nil, want order mismatch (also differs by query_hash)")
	}
}
