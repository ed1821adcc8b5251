// Package resolver is the Scrobble Track Resolver (spec §3.3, §4.3): it
// normalizes a raw scrobble's track facets into a stable track_key and,
// best-effort, resolves it to a canonical MusicBrainz recording through
// a cascade of embedded-id, ISRC, fingerprint, and text-search lookups.
package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	isrcPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}[0-9]{2}[0-9]{5}$`)
	mbidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	whitespace  = regexp.MustCompile(`\s+`)

	// qualifierSuffix matches a trailing parenthetical/bracketed group
	// naming a remaster/live/version/edit variant, e.g. "(Remaster)",
	// "[2009 Remastered]", "(Live at Wembley)", "(Radio Edit)" (spec §8
	// scenario 4: "Toxic (Remaster)" must track_key-match "Toxic").
	qualifierSuffix = regexp.MustCompile(`(?i)\s*[\(\[][^()\[\]]*\b(remaster(?:ed)?|live|version|edit|mix|mono|stereo|demo|acoustic|deluxe|bonus|explicit|clean)\b[^()\[\]]*[\)\]]\s*$`)
)

// stripQualifierSuffix removes trailing remaster/live/version qualifier
// groups from a title, repeatedly in case more than one is chained
// (e.g. "Toxic (Live) (Remaster)").
func stripQualifierSuffix(s string) string {
	for {
		stripped := qualifierSuffix.ReplaceAllString(s, "")
		if stripped == s {
			return s
		}
		s = stripped
	}
}

// Raw is the unnormalized scrobble input.
type Raw struct {
	Title      string
	Artist     string
	Album      string
	DurationS  int
	ISRC       string
	MBID       string
}

// Normalized is the canonical form persisted alongside a scrobble (spec
// §3.3): lowercased, NFKC-normalized, whitespace-collapsed facets plus a
// validated ISRC/MBID and the derived track_key.
type Normalized struct {
	TitleNorm  string
	ArtistNorm string
	AlbumNorm  string
	DurationS  int // 0 means absent
	ISRCNorm   string
	MBIDNorm   string
	TrackKey   string
}

func foldText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Normalize computes every derived field of spec §3.3 from raw input.
func Normalize(r Raw) Normalized {
	out := Normalized{
		TitleNorm:  foldText(stripQualifierSuffix(r.Title)),
		ArtistNorm: foldText(r.Artist),
		AlbumNorm:  foldText(r.Album),
	}
	if r.DurationS > 0 && r.DurationS < 21600 {
		out.DurationS = r.DurationS
	}
	if isrc := strings.ToUpper(strings.TrimSpace(r.ISRC)); isrcPattern.MatchString(isrc) {
		out.ISRCNorm = isrc
	}
	if mbid := strings.ToLower(strings.TrimSpace(r.MBID)); mbidPattern.MatchString(mbid) {
		out.MBIDNorm = mbid
	}
	out.TrackKey = trackKey(out)
	return out
}

// durationBucket floors a duration to its even-second 2s bucket, so a
// 1s tag drift inside a bucket (e.g. 200s vs 201s) collapses to the same
// key (spec §3.3).
func durationBucket(durationS int) string {
	if durationS <= 0 {
		return ""
	}
	bucket := durationS / 2 * 2
	return itoa(bucket)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// trackKey is the SHA-256 hex digest described in spec §3.3: a
// pipe-joined tuple keyed on whether both title and artist are present.
func trackKey(n Normalized) string {
	bucket := durationBucket(n.DurationS)
	var parts []string
	if n.TitleNorm != "" && n.ArtistNorm != "" {
		parts = []string{"trackkey-v1", n.TitleNorm, n.ArtistNorm, bucket}
	} else {
		parts = []string{"trackkey-v1-incomplete", n.TitleNorm, n.ArtistNorm, bucket, n.AlbumNorm}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
