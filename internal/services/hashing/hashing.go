package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// SHA256File streams a file through sha256 and returns the hex fingerprint.
// Identical bytes always yield identical fingerprints; this is the sole
// mechanism for change detection and duplicate-content detection.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
