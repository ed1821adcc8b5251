package studyset

import "sort"

// bucketFor maps a blended [1,5] difficulty to a coarse bucket, splitting
// the range into equal thirds.
func bucketFor(difficulty float64) DifficultyBucket {
	switch {
	case difficulty < 1+4.0/3:
		return BucketEasy
	case difficulty < 1+8.0/3:
		return BucketMedium
	default:
		return BucketHard
	}
}

func bucketScore(b DifficultyBucket) float64 {
	switch b {
	case BucketEasy:
		return 2
	case BucketHard:
		return 4
	default:
		return 3
	}
}

// partitionCounts splits target equally across the three buckets; the
// remainder (target mod 3) is assigned medium first, then easy, then
// hard (spec §4.2 "Say-it-back selection").
func partitionCounts(target int) map[DifficultyBucket]int {
	base := target / 3
	rem := target % 3
	out := map[DifficultyBucket]int{BucketEasy: base, BucketMedium: base, BucketHard: base}
	order := []DifficultyBucket{BucketMedium, BucketEasy, BucketHard}
	for i := 0; i < rem; i++ {
		out[order[i]]++
	}
	return out
}

// selectSayItBack deterministically picks `target` lines for say-it-back
// questions: the bucket partition of spec §4.2, up to two pre-seeded
// repeated lines, then even-stride fill per bucket, with overflow
// rebalanced into under-filled buckets.
func selectSayItBack(lines []LineTag, target int) []Question {
	if target <= 0 {
		return nil
	}
	byBucket := map[DifficultyBucket][]LineTag{}
	for _, l := range lines {
		b := bucketFor(l.Difficulty)
		byBucket[b] = append(byBucket[b], l)
	}

	picked := map[string]bool{}
	var selections []LineTag

	preSeeded := 0
	for _, l := range lines {
		if preSeeded >= 2 {
			break
		}
		if l.Repeated && !picked[l.LineID] {
			selections = append(selections, l)
			picked[l.LineID] = true
			preSeeded++
		}
	}

	counts := partitionCounts(target)
	buckets := []DifficultyBucket{BucketEasy, BucketMedium, BucketHard}
	for _, b := range buckets {
		want := counts[b]
		candidates := byBucket[b]
		if want <= 0 || len(candidates) == 0 {
			continue
		}
		chosen := evenStridePick(candidates, want, picked)
		for _, c := range chosen {
			selections = append(selections, c)
			picked[c.LineID] = true
		}
	}

	// Rebalance: if total selected is short of target, pull from any
	// remaining unpicked line across all buckets, largest pool first.
	if len(selections) < target {
		var pool []LineTag
		for _, b := range buckets {
			pool = append(pool, byBucket[b]...)
		}
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].LineIndex < pool[j].LineIndex })
		for _, l := range pool {
			if len(selections) >= target {
				break
			}
			if !picked[l.LineID] {
				selections = append(selections, l)
				picked[l.LineID] = true
			}
		}
	}
	if len(selections) > target {
		selections = selections[:target]
	}

	out := make([]Question, 0, len(selections))
	for i, l := range selections {
		out = append(out, Question{
			Type:            QuestionSayItBack,
			ID:              sayItBackID(i),
			Prompt:          "",
			Excerpt:         l.Text,
			ExcerptLang:     l.Lang,
			SourceLineID:    l.LineID,
			Difficulty:      bucketFor(l.Difficulty),
			DifficultyScore: clamp(0.55*bucketScore(bucketFor(l.Difficulty))+0.45*l.Difficulty, 1, 5),
		})
	}
	return out
}

func sayItBackID(i int) string {
	return idWithPrefix("sib", i)
}

// evenStridePick walks candidates with step = len(candidates)/count,
// landing on each stride's midpoint, per spec §4.2.
func evenStridePick(candidates []LineTag, count int, picked map[string]bool) []LineTag {
	if count >= len(candidates) {
		out := make([]LineTag, 0, len(candidates))
		for _, c := range candidates {
			if !picked[c.LineID] {
				out = append(out, c)
			}
		}
		return out
	}
	step := float64(len(candidates)) / float64(count)
	out := make([]LineTag, 0, count)
	used := map[string]bool{}
	for i := 0; i < count; i++ {
		idx := int(step*float64(i) + step/2)
		if idx >= len(candidates) {
			idx = len(candidates) - 1
		}
		c := candidates[idx]
		if picked[c.LineID] || used[c.LineID] {
			// find nearest unused candidate
			for off := 1; off < len(candidates); off++ {
				for _, alt := range []int{idx - off, idx + off} {
					if alt < 0 || alt >= len(candidates) {
						continue
					}
					cand := candidates[alt]
					if !picked[cand.LineID] && !used[cand.LineID] {
						c = cand
						goto found
					}
				}
			}
			continue
		}
	found:
		used[c.LineID] = true
		out = append(out, c)
	}
	return out
}
