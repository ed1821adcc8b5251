package studyset

// interleave produces the final question order by repeatedly drawing
// from the largest remaining queue among {say_it_back, translation,
// trivia} that is not the type just emitted, breaking ties by the
// queue's fixed index, to avoid runs of a single type (spec §4.2
// "Interleaving").
func interleave(sayItBack, translation, trivia []Question) []Question {
	queues := [3][]Question{sayItBack, translation, trivia}
	total := len(sayItBack) + len(translation) + len(trivia)
	out := make([]Question, 0, total)
	lastType := -1
	for len(out) < total {
		best := -1
		for i, q := range queues {
			if len(q) == 0 || i == lastType {
				continue
			}
			if best == -1 || len(queues[i]) > len(queues[best]) {
				best = i
			}
		}
		if best == -1 {
			// every non-empty queue equals lastType (only one queue left
			// with items): fall back to it even though it repeats.
			for i, q := range queues {
				if len(q) > 0 {
					best = i
					break
				}
			}
		}
		if best == -1 {
			break
		}
		out = append(out, queues[best][0])
		queues[best] = queues[best][1:]
		lastType = best
	}
	return out
}
