package resolver

import "strings"

// levenshtein computes the classic edit distance between a and b using
// a two-row dynamic-programming table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// similarity is normalized-Levenshtein similarity in [0, 1]: 1 minus the
// edit distance divided by the longer string's length, case-insensitive
// (spec §4.3 "sim(title)"/"sim(artist)").
func similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" && b == "" {
		return 1
	}
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein(a, b)
	sim := 1 - float64(dist)/float64(maxLen)
	if sim < 0 {
		sim = 0
	}
	return sim
}

// durationScore is the tiered seconds-diff scoring function of spec
// §4.3 step 2.
func durationScore(a, b int) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 1:
		return 1.0
	case diff <= 2:
		return 0.9
	case diff <= 5:
		return 0.7
	case diff <= 10:
		return 0.4
	default:
		return 0
	}
}

// Candidate is a recording returned by an upstream lookup, scored
// against the normalized input.
type Candidate struct {
	MBID      string
	Title     string
	Artist    string
	DurationS int
}

// candidateScore blends title/artist similarity with duration proximity
// per spec §4.3 step 2: 0.5·sim(title) + 0.35·sim(artist) +
// 0.15·duration_score(duration).
func candidateScore(n Normalized, c Candidate) float64 {
	return 0.5*similarity(n.TitleNorm, c.Title) +
		0.35*similarity(n.ArtistNorm, c.Artist) +
		0.15*durationScore(n.DurationS, c.DurationS)
}

func bestCandidate(n Normalized, candidates []Candidate) (Candidate, float64, bool) {
	var best Candidate
	var bestScore float64
	found := false
	for _, c := range candidates {
		s := candidateScore(n, c)
		if !found || s > bestScore {
			best, bestScore, found = c, s, true
		}
	}
	return best, bestScore, found
}
