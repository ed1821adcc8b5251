package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var collapseWhitespace = regexp.MustCompile(`\s+`)

// normText lowercases, trims, and collapses whitespace, the
// normalization finalize applies to title/artist/album before hashing
// (spec §4.1 "finalize").
func normText(s string) string {
	return collapseWhitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}
