package cask

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashObject computes the SHA-256 of "kind\0payload" and returns it as a
// lowercase hex Checksum. Hashing the uncompressed payload keeps object
// identity stable across storage modes.
func HashObject(kind ObjectKind, payload []byte) Checksum {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(payload)
	return Checksum(hex.EncodeToString(h.Sum(nil)))
}

// ValidChecksum reports whether s is a well-formed 64-char lowercase hex
// checksum.
func ValidChecksum(s Checksum) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range string(s) {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
