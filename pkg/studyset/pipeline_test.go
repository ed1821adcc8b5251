package studyset

import (
	"context"
	"strings"
	"testing"
)

const sampleLyrics = `I walk this empty street tonight
The city sleeps but I'm still here
I walk this empty street tonight
Every window dark and cold
Somewhere a train is pulling out`

func TestGenerateSayItBackOnlySkipsLLMEntirely(t *testing.T) {
	pack, warnings, err := Generate(context.Background(), nil, Input{
		LearnerLang: "es",
		Title:       "Empty Street",
		Artist:      "Nobody",
		RawLyrics:   sampleLyrics,
		Counts:      Counts{SayItBack: 2},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(pack.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(pack.Questions))
	}
	for _, q := range pack.Questions {
		if q.Type != QuestionSayItBack {
			t.Fatalf("expected only say_it_back questions, got %s", q.Type)
		}
		if len(q.Choices) != 0 || q.Explanation != "" {
			t.Fatalf("say_it_back question %q must have no choices/explanation", q.ID)
		}
	}
}

func TestGenerateDegradesTriviaWithNoReferents(t *testing.T) {
	_, warnings, err := Generate(context.Background(), nil, Input{
		LearnerLang: "es",
		Title:       "Empty Street",
		Artist:      "Nobody",
		RawLyrics:   sampleLyrics,
		Counts:      Counts{SayItBack: 1, Trivia: 3},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "trivia") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a trivia-skip warning, got %v", warnings)
	}
}

func TestGenerateRejectsEmptyLyrics(t *testing.T) {
	_, _, err := Generate(context.Background(), nil, Input{RawLyrics: "hi\nok"})
	if err == nil {
		t.Fatalf("expected error for lyrics with no usable lines")
	}
}
