// Package checksum fingerprints scene files so unchanged files are not
// re-laid out.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data. Line endings are
// normalized first: a file saved with CRLF by one editor and LF by another
// describes the same scene.
func Sum(data []byte) string {
	h := sha256.Sum256(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))
	return hex.EncodeToString(h[:])
}
