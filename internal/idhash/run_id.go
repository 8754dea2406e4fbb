// Package idhash derives deterministic identifiers from record content.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// runIDBytes is how much of the digest feeds the encoded ID. Nine bytes give
// a 12-13 character base58 string, short enough for log lines and URLs while
// keeping collisions out of reach for a journal of this size.
const runIDBytes = 9

// ComputeRunID computes a deterministic run_id.
// Formula: base58(SHA256(ticker|requested_at_ms|seed)[:runIDBytes])
func ComputeRunID(ticker string, requestedAt time.Time, seed int64) string {
	data := fmt.Sprintf("%s|%d|%d", ticker, requestedAt.UnixMilli(), seed)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:runIDBytes])
}
