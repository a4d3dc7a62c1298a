package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText returns a stable hex digest used to correlate prompts and documents in logs without logging their content.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
