package studyset

import (
	"context"
	"testing"
)

func TestTagLinesAppliesRepeatedPenalty(t *testing.T) {
	lines := []LineTag{
		{LineID: "a", LineIndex: 0, Text: "somewhere a train is pulling out tonight", Repeated: false},
		{LineID: "b", LineIndex: 1, Text: "somewhere a train is pulling out tonight", Repeated: true},
	}
	tagged, _, err := tagLines(context.Background(), nil, lines)
	if err != nil {
		t.Fatalf("tagLines() error = %v", err)
	}
	if tagged[0].DifficultyLexical != tagged[1].DifficultyLexical {
		t.Fatalf("expected identical lexical difficulty for identical text, got %v vs %v",
			tagged[0].DifficultyLexical, tagged[1].DifficultyLexical)
	}
	if tagged[1].Difficulty >= tagged[0].Difficulty {
		t.Fatalf("expected the repeated line's blended difficulty (%v) to be lower than the non-repeated line's (%v)",
			tagged[1].Difficulty, tagged[0].Difficulty)
	}
	if tagged[0].Difficulty-tagged[1].Difficulty < 0.34 {
		t.Fatalf("expected roughly a 0.35 penalty for the repeated line, got a gap of %v",
			tagged[0].Difficulty-tagged[1].Difficulty)
	}
}
