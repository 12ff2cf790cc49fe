package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// ContentHash computes the sha256 of a stored file, prefixed with the
// algorithm name
func (s *Store) ContentHash(p string) (string, error) {
	f, _, err := s.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", p, err)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

// ShortHash returns a shortened version of the hash for display purposes.
func ShortHash(fullHash string) string {
	// Remove "sha256:" prefix and take first 12 chars
	if len(fullHash) > 19 {
		return fullHash[7:19]
	}
	return fullHash
}
