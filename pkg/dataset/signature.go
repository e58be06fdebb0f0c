package dataset

import "github.com/bijux/atlas/pkg/canon"

// MerkleRoot computes the Merkle root over rows, where each row is
// canonically serialized and hashed, and pairs of sibling hashes are
// concatenated as their lowercase hex strings and hashed again until one
// hash remains. An odd node at any level is paired with a duplicate of itself.
// An empty input yields SHA-256 of the empty byte sequence.
func MerkleRoot(rows []any) (string, error) {
	if len(rows) == 0 {
		return canon.SHA256Hex(nil), nil
	}

	level := make([][]byte, len(rows))
	for i, row := range rows {
		hashHex, err := canon.StableHashHex(row)
		if err != nil {
			return "", err
		}
		level[i] = []byte(hashHex)
	}

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			combined := append(append([]byte{}, left...), right...)
			next = append(next, []byte(canon.SHA256Hex(combined)))
		}
		level = next
	}

	return string(level[0]), nil
}

// SignatureInput is the shape hashed to produce a DatasetSignature: the
// Merkle roots of the gene and transcript tables, plus their row counts.
type SignatureInput struct {
	GeneTableHash       string `json:"gene_table_hash"`
	TranscriptTableHash string `json:"transcript_table_hash"`
	GeneCount           int64  `json:"gene_count"`
	TranscriptCount     int64  `json:"transcript_count"`
}

// DatasetSignature computes the dataset signature: the SHA-256 of the
// canonical JSON of a SignatureInput built from the given rows and counts.
func DatasetSignature(geneRows, transcriptRows []any) (string, error) {
	geneHash, err := MerkleRoot(geneRows)
	if err != nil {
		return "", err
	}
	transcriptHash, err := MerkleRoot(transcriptRows)
	if err != nil {
		return "", err
	}
	input := SignatureInput{
		GeneTableHash:       geneHash,
		TranscriptTableHash: transcriptHash,
		GeneCount:           int64(len(geneRows)),
		TranscriptCount:     int64(len(transcriptRows)),
	}
	return canon.StableHashHex(input)
}
