package crypto

import (
	"crypto/sha256"
	"fmt"
)

// SHA256 returns the SHA256 digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Accumulate folds item into a running digest: SHA256(acc || SHA256(item)).
// An empty acc starts a new chain.
func Accumulate(acc []byte, item []byte) []byte {
	hasher := sha256.New()
	hasher.Write(acc)
	hasher.Write(SHA256(item))
	return hasher.Sum(nil)
}

// Digestf hashes a formatted string. It derives deterministic identifiers
// that no real block carries.
func Digestf(format string, args ...interface{}) []byte {
	return SHA256([]byte(fmt.Sprintf(format, args...)))
}
