package studyset

import "sort"

// isTranslatable reports whether a line's primary language differs from
// the learner's in its first two characters (spec §4.2 "Translation
// candidate selection").
func isTranslatable(lineLang, learnerLang string) bool {
	a, b := firstTwo(lineLang), firstTwo(learnerLang)
	return a != b
}

func firstTwo(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return string(r)
	}
	return string(r[:2])
}

// translationCandidates ranks translatable lines by proximity to
// difficulty 3.3, with small penalties for repetition and short (<4
// word) lines, keeping up to 24 (spec §4.2).
func translationCandidates(lines []LineTag, learnerLang string) []LineTag {
	var pool []LineTag
	for _, l := range lines {
		if isTranslatable(l.Lang, learnerLang) {
			pool = append(pool, l)
		}
	}
	score := func(l LineTag) float64 {
		s := -abs(l.Difficulty - 3.3)
		if l.Repeated {
			s -= 0.15
		}
		if wordCount(l.Text) < 4 {
			s -= 0.10
		}
		return s
	}
	sort.SliceStable(pool, func(i, j int) bool { return score(pool[i]) > score(pool[j]) })
	if len(pool) > 24 {
		pool = pool[:24]
	}
	return pool
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
