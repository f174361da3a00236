// Package evidence holds the supporting-document utilities: content hashing,
// type sniffing, and the blob storage port.
package evidence

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// pdfMagic is the fixed header every PDF starts with.
var pdfMagic = []byte("%PDF-")

// HashBytes returns the lowercase hex SHA-256 digest of the document.
// The digest is the duplicate-detection key: two uploads of identical bytes
// by the same student are one document.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsPDF sniffs the content rather than trusting the declared mime type.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}
