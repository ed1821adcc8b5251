package studyset

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/originform/publishctl/pkg/llm"
)

// mcqRequest is one MCQ the prompt asks the LLM to produce, keyed to a
// source line and a type (translation vs trivia).
type mcqRequest struct {
	Type         QuestionType
	SourceLineID string
	Referent     *Referent // only set for trivia
}

// mcqSchema enforces the structural constraints spec §4.2 calls out:
// sourceLineId drawn from the known set, exactly four choices, integer
// correctIndex in [0,3], and four choiceRationales.
func mcqSchema(lineIDs []string) json.RawMessage {
	doc := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"questions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"type":             map[string]interface{}{"type": "string", "enum": []string{"translation_mcq", "trivia_mcq"}},
						"sourceLineId":     map[string]interface{}{"type": "string", "enum": lineIDs},
						"prompt":           map[string]interface{}{"type": "string"},
						"choices":          map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "minItems": 4, "maxItems": 4},
						"correctIndex":     map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 3},
						"explanation":      map[string]interface{}{"type": "string"},
						"choiceRationales": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "minItems": 4, "maxItems": 4},
						"sourceClassification": map[string]interface{}{"type": "string", "enum": []string{"verified", "accepted", "unreviewed"}},
					},
					"required":             []string{"type", "sourceLineId", "prompt", "choices", "correctIndex", "explanation", "choiceRationales"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"questions"},
		"additionalProperties": false,
	}
	b, _ := json.Marshal(doc)
	return b
}

type llmMCQResult struct {
	Questions []struct {
		Type                 string   `json:"type"`
		SourceLineID         string   `json:"sourceLineId"`
		Prompt               string   `json:"prompt"`
		Choices              []string `json:"choices"`
		CorrectIndex         int      `json:"correctIndex"`
		Explanation          string   `json:"explanation"`
		ChoiceRationales     []string `json:"choiceRationales"`
		SourceClassification string   `json:"sourceClassification"`
	} `json:"questions"`
}

// buildMCQPrompt assembles the system/user prompt text described in
// spec §4.2 "MCQ prompt": learner language, track facets, count
// targets, lyric lines with hints, up to 24 referents, and explicit
// language-aware instructions for each MCQ type.
func buildMCQPrompt(in Input, lines []LineTag, referents []Referent, translationCount, triviaCount int) (system, user string) {
	system = "You write multiple-choice language-learning questions from song lyrics. " +
		"Translation questions are Jeopardy-style: the prompt describes the meaning in the learner's language, " +
		"and the four choices are original-language lyric lines. Trivia questions extract a specific fact from a referent annotation. " +
		"Every sourceLineId you use must be chosen from the provided set of line ids. Every question needs exactly four choices and four choice rationales."

	var b strings.Builder
	fmt.Fprintf(&b, "Learner language: %s\nTrack: %q by %q\n", in.LearnerLang, in.Title, in.Artist)
	fmt.Fprintf(&b, "Generate %d translation_mcq and %d trivia_mcq questions.\n\n", translationCount, triviaCount)
	b.WriteString("Lines:\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "%s: %q (lang=%s top1k=%.2f)\n", l.LineID, l.Text, l.Lang, l.Top1kRatio)
	}
	if len(referents) > 0 {
		b.WriteString("\nReferents:\n")
		n := len(referents)
		if n > 24 {
			n = 24
		}
		for i := 0; i < n; i++ {
			r := referents[i]
			fmt.Fprintf(&b, "- %q: %s (votes=%d, classification=%s)\n", r.Fragment, r.Annotation, r.Votes, r.Classification)
		}
	}
	user = b.String()
	return system, user
}

var (
	fencedCodeBlock  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	correctIndexTypo = regexp.MustCompile(`(?i)"correct[_-]?index"`)
	rationaleLabels  = []string{"Correct:", "Correcto:", "正解:", "Richtig:", "Correct :", "正解："}
)

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if m := fencedCodeBlock.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func repairCorrectIndexKey(s string) string {
	return correctIndexTypo.ReplaceAllString(s, `"correctIndex"`)
}

func stripRationaleLabel(s string) string {
	trimmed := strings.TrimSpace(s)
	for _, label := range rationaleLabels {
		if strings.HasPrefix(trimmed, label) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, label))
		}
	}
	return trimmed
}

// generateMCQs calls the LLM once for the combined translation+trivia
// batch and parses/normalizes the result per spec §4.2 "Parsing &
// normalization". Returns nil, "", nil when both counts are zero (the
// "LLM call is bypassed entirely" skip rule).
func generateMCQs(ctx context.Context, client *llm.Client, in Input, translationLines []LineTag, referents []Referent, lineByID map[string]LineTag, translationCount, triviaCount int) ([]Question, string, error) {
	if translationCount == 0 && triviaCount == 0 {
		return nil, "", nil
	}
	if client == nil || !client.Configured() {
		return nil, "", fmt.Errorf("studyset: llm client required to generate MCQ questions")
	}

	lineIDs := make([]string, 0, len(translationLines))
	for _, l := range translationLines {
		lineIDs = append(lineIDs, l.LineID)
	}
	system, user := buildMCQPrompt(in, translationLines, referents, translationCount, triviaCount)
	res, err := client.ChatJSON(ctx, system, user, "mcq_questions", mcqSchema(lineIDs))
	if err != nil {
		return nil, "", err
	}

	raw := repairCorrectIndexKey(stripFence(res.Content))
	var parsed llmMCQResult
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, "", fmt.Errorf("studyset: couldn't parse mcq response: %w", err)
	}

	out := make([]Question, 0, len(parsed.Questions))
	for i, q := range parsed.Questions {
		lt, ok := lineByID[q.SourceLineID]
		if !ok {
			return nil, "", fmt.Errorf("studyset: mcq references unknown source_line_id %q", q.SourceLineID)
		}
		choices := make([]string, len(q.Choices))
		for j, c := range q.Choices {
			choices[j] = collapseSpace.ReplaceAllString(strings.TrimSpace(c), " ")
		}
		rationales := make([]string, len(q.ChoiceRationales))
		for j, r := range q.ChoiceRationales {
			rationales[j] = collapseSpace.ReplaceAllString(stripRationaleLabel(r), " ")
		}
		bucket := bucketFor(lt.Difficulty)
		qtype := QuestionTranslation
		if q.Type == string(QuestionTrivia) {
			qtype = QuestionTrivia
		}
		classification := SourceClassification(q.SourceClassification)
		if qtype == QuestionTrivia && classification == "" {
			classification = ClassificationUnreviewed
		}
		out = append(out, Question{
			Type:                 qtype,
			ID:                   idWithPrefix(mcqIDPrefix(qtype), i),
			Prompt:               collapseSpace.ReplaceAllString(strings.TrimSpace(q.Prompt), " "),
			Excerpt:              lt.Text,
			ExcerptLang:          lt.Lang,
			SourceLineID:         lt.LineID,
			Difficulty:           bucket,
			DifficultyScore:      clamp(0.55*bucketScore(bucket)+0.45*lt.Difficulty, 1, 5),
			Choices:              choices,
			CorrectIndex:         q.CorrectIndex,
			Explanation:          collapseSpace.ReplaceAllString(strings.TrimSpace(q.Explanation), " "),
			ChoiceRationales:     rationales,
			SourceClassification: classification,
		})
	}
	return out, res.PromptHash, nil
}

func mcqIDPrefix(t QuestionType) string {
	if t == QuestionTrivia {
		return "triv"
	}
	return "tran"
}
