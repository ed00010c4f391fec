package docpkg

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeHash returns the SHA-256 of data as 64 lowercase hex characters.
// It binds externally stored annotation sets to the exact document state
// they were taken from, so it must stay deterministic across platforms.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
