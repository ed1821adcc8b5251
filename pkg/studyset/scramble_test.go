package studyset

import "testing"

func TestScrambleChoicesNeverIdentity(t *testing.T) {
	for i := 0; i < 100; i++ {
		perm := scrambleChoices("0xseed", QuestionTranslation, idWithPrefix("tran", i), i)
		if perm == [4]int{0, 1, 2, 3} {
			t.Fatalf("identity permutation produced at index %d", i)
		}
		seen := map[int]bool{}
		for _, p := range perm {
			if p < 0 || p > 3 || seen[p] {
				t.Fatalf("invalid permutation %v", perm)
			}
			seen[p] = true
		}
	}
}

func TestScrambleChoicesDeterministic(t *testing.T) {
	a := scrambleChoices("0xsame", QuestionTrivia, "triv-001", 3)
	b := scrambleChoices("0xsame", QuestionTrivia, "triv-001", 3)
	if a != b {
		t.Fatalf("expected deterministic permutation, got %v vs %v", a, b)
	}
}

func TestApplyScrambleRewritesCorrectIndex(t *testing.T) {
	q := Question{
		Choices:          []string{"a", "b", "c", "d"},
		CorrectIndex:     2,
		ChoiceRationales: []string{"ra", "rb", "rc", "rd"},
	}
	perm := [4]int{1, 2, 3, 0} // newPos -> oldPos
	out := applyScramble(q, perm)
	if out.Choices[3] != "a" || out.Choices[0] != "b" {
		t.Fatalf("unexpected choices after scramble: %v", out.Choices)
	}
	if out.Choices[out.CorrectIndex] != "c" {
		t.Fatalf("correct_index %d does not point at original correct choice, got %q", out.CorrectIndex, out.Choices[out.CorrectIndex])
	}
}

func TestInterleaveAvoidsConsecutiveRunsWhenPossible(t *testing.T) {
	say := []Question{{Type: QuestionSayItBack, ID: "s1"}, {Type: QuestionSayItBack, ID: "s2"}}
	trans := []Question{{Type: QuestionTranslation, ID: "t1"}}
	trivia := []Question{{Type: QuestionTrivia, ID: "v1"}}
	out := interleave(say, trans, trivia)
	if len(out) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Type == out[i-1].Type {
			t.Fatalf("unexpected consecutive run of %s at index %d: %+v", out[i].Type, i, out)
		}
	}
}
