package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sync"
)

// hasherPool is a package-level pool of reusable SHA-256 hash instances
// used for entity content hashing.
var hasherPool = sync.Pool{
	New: func() any {
		return sha256.New()
	},
}

// Hash computes a SHA-256 digest over the given byte slice using a
// hasher pulled from the package pool.
//
// Behavior:
//   - Retrieves a hash.Hash instance from sync.Pool
//   - Resets it, writes the data, computes the sum
//   - Resets again and returns it to the pool
//
// Parameters:
//
//	data - arbitrary byte slice to be hashed
//
// Returns:
//
//	[]byte - SHA-256 digest
func Hash(data []byte) []byte {
	h := hasherPool.Get().(hash.Hash)
	h.Reset()

	h.Write(data)
	sum := h.Sum(nil)

	h.Reset()
	hasherPool.Put(h)

	return sum
}

// HashHex computes a SHA-256 digest over the given byte slice and
// returns it hex-encoded. This is the canonical form entity content
// hashes are stored and compared in.
//
// Example usage:
//
//	digest := utils.HashHex(payloadBytes)
func HashHex(data []byte) string {
	return hex.EncodeToString(Hash(data))
}

// HashString computes an HMAC-SHA256 signature over the given string
// using the provided key and returns the result hex-encoded.
//
// Used for transport integrity checks between the sync client and the
// blob server; a new HMAC instance is created on each call.
//
// Parameters:
//
//	data    - string to be signed
//	hashKey - secret key used for the HMAC operation
//
// Returns:
//
//	string - hex-encoded HMAC-SHA256 digest
func HashString(data string, hashKey string) string {
	return hex.EncodeToString(hashBytes([]byte(data), hashKey))
}

// HashBytesKeyed computes an HMAC-SHA256 signature over the given byte
// slice using the provided key and returns the result hex-encoded.
func HashBytesKeyed(data []byte, hashKey string) string {
	return hex.EncodeToString(hashBytes(data, hashKey))
}

// hashBytes computes an HMAC-SHA256 digest over the given byte slice
// using the provided key. Internal helper for the keyed variants.
func hashBytes(data []byte, hashKey string) []byte {
	hasher := hmac.New(sha256.New, []byte(hashKey))
	hasher.Write(data)
	return hasher.Sum(nil)
}
