// Package checksum computes content digests used as HTTP entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// JSON returns the digest of v's JSON encoding.
func JSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("checksum: encode: %w", err)
	}
	return Sum(data), nil
}

// ETag returns the digest of v formatted as a strong entity tag.
func ETag(v any) (string, error) {
	sum, err := JSON(v)
	if err != nil {
		return "", err
	}
	return `"` + sum + `"`, nil
}
