package studyset

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// seededRNG is a small deterministic PRNG (splitmix64) seeded from a
// sha256 digest, used so scrambling is reproducible given the same
// prompt hash, question type, id, and index (spec §4.2 "Scrambling").
type seededRNG struct{ state uint64 }

func newSeededRNG(seed [32]byte) *seededRNG {
	return &seededRNG{state: binary.BigEndian.Uint64(seed[:8])}
}

func (r *seededRNG) next() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func (r *seededRNG) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

func scrambleSeed(promptHash string, qtype QuestionType, questionID string, index int) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%d", promptHash, qtype, questionID, index)))
}

// scrambleChoices shuffles a 4-element index permutation with a
// Fisher-Yates pass, forcing [1,2,3,0] if the result is the identity
// permutation (spec §4.2).
func scrambleChoices(promptHash string, qtype QuestionType, questionID string, index int) [4]int {
	rng := newSeededRNG(scrambleSeed(promptHash, qtype, questionID, index))
	perm := [4]int{0, 1, 2, 3}
	for i := 3; i > 0; i-- {
		j := rng.intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	if perm == [4]int{0, 1, 2, 3} {
		perm = [4]int{1, 2, 3, 0}
	}
	return perm
}

// applyScramble rewrites choices/correctIndex/choiceRationales under the
// given permutation: perm[newPos] = oldPos.
func applyScramble(q Question, perm [4]int) Question {
	newChoices := make([]string, 4)
	newRationales := make([]string, 4)
	newCorrect := 0
	for newPos, oldPos := range perm {
		newChoices[newPos] = q.Choices[oldPos]
		newRationales[newPos] = q.ChoiceRationales[oldPos]
		if oldPos == q.CorrectIndex {
			newCorrect = newPos
		}
	}
	q.Choices = newChoices
	q.ChoiceRationales = newRationales
	q.CorrectIndex = newCorrect
	return q
}

// scrambleAll applies scrambling to every MCQ question in place
// (say-it-back questions are untouched, per spec §4.2).
func scrambleAll(promptHash string, questions []Question) []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		if !q.isMCQ() {
			out[i] = q
			continue
		}
		perm := scrambleChoices(promptHash, q.Type, q.ID, i)
		out[i] = applyScramble(q, perm)
	}
	return out
}
