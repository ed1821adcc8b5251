package studyset

import (
	"fmt"
	"strings"
)

// Validate enforces spec §4.2 "Final validation": unique IDs, say-it-back
// shape, MCQ shape, in-range indices/scores, source-line references, and
// prompt-hash shape.
func Validate(pack Pack) error {
	lineByID := map[string]bool{}
	for _, l := range pack.LineTags {
		if lineByID[l.LineID] {
			return fmt.Errorf("studyset: duplicate line_id %q", l.LineID)
		}
		lineByID[l.LineID] = true
	}

	seenIDs := map[string]bool{}
	for _, q := range pack.Questions {
		if seenIDs[q.ID] {
			return fmt.Errorf("studyset: duplicate question id %q", q.ID)
		}
		seenIDs[q.ID] = true

		if !lineByID[q.SourceLineID] {
			return fmt.Errorf("studyset: question %q references unknown source_line_id %q", q.ID, q.SourceLineID)
		}
		if q.DifficultyScore < 1 || q.DifficultyScore > 5 {
			return fmt.Errorf("studyset: question %q difficulty_score %v out of [1,5]", q.ID, q.DifficultyScore)
		}
		if len([]rune(q.Excerpt)) > 180 || strings.ContainsAny(q.Excerpt, "\n\r") {
			return fmt.Errorf("studyset: question %q excerpt invalid", q.ID)
		}

		switch q.Type {
		case QuestionSayItBack:
			if len(q.Choices) != 0 || q.Explanation != "" {
				return fmt.Errorf("studyset: say_it_back question %q must have no choices and no explanation", q.ID)
			}
		case QuestionTranslation, QuestionTrivia:
			if err := validateMCQ(q); err != nil {
				return err
			}
		default:
			return fmt.Errorf("studyset: unknown question type %q", q.Type)
		}
	}

	if !strings.HasPrefix(pack.Generator.PromptHash, "0x") || len(pack.Generator.PromptHash) != 66 {
		return fmt.Errorf("studyset: generator prompt_hash must be 0x-prefixed and 66 chars, got %q", pack.Generator.PromptHash)
	}
	if pack.Generator.CreatedAt <= 0 {
		return fmt.Errorf("studyset: generator created_at must be positive")
	}
	return nil
}

func validateMCQ(q Question) error {
	if len(q.Choices) != 4 {
		return fmt.Errorf("studyset: mcq %q must have exactly 4 choices, got %d", q.ID, len(q.Choices))
	}
	if len(q.ChoiceRationales) != 4 {
		return fmt.Errorf("studyset: mcq %q must have exactly 4 choice_rationales, got %d", q.ID, len(q.ChoiceRationales))
	}
	seen := map[string]bool{}
	for _, c := range q.Choices {
		if c == "" {
			return fmt.Errorf("studyset: mcq %q has an empty choice", q.ID)
		}
		if seen[c] {
			return fmt.Errorf("studyset: mcq %q has duplicate choices", q.ID)
		}
		seen[c] = true
	}
	if q.CorrectIndex < 0 || q.CorrectIndex > 3 {
		return fmt.Errorf("studyset: mcq %q correct_index %d out of [0,3]", q.ID, q.CorrectIndex)
	}
	if q.Explanation == "" {
		return fmt.Errorf("studyset: mcq %q must have a non-empty explanation", q.ID)
	}
	if q.Type == QuestionTrivia {
		switch q.SourceClassification {
		case ClassificationVerified, ClassificationAccepted, ClassificationUnreviewed:
		default:
			return fmt.Errorf("studyset: trivia_mcq %q has invalid source_classification %q", q.ID, q.SourceClassification)
		}
	}
	return nil
}
