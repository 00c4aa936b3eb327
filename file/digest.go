package file

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex BLAKE2b-256 digest of data. Both programs log it so
// an operator can compare the two ends of a transfer.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return encodeDigest(sum[:])
}

func encodeDigest(sum []byte) string {
	return hex.EncodeToString(sum)
}
