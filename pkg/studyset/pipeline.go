package studyset

import (
	"context"
	"fmt"
	"time"

	"github.com/originform/publishctl/pkg/llm"
)

// Generate runs the full pipeline of spec §4.2 over raw lyrics and
// returns a validated Pack.
func Generate(ctx context.Context, client *llm.Client, in Input) (*Pack, []string, error) {
	var warnings []string

	lines, err := collectLines(in.RawLyrics)
	if err != nil {
		return nil, nil, err
	}

	var tagged []LineTag
	var taggingPromptHash string
	if len(in.PrecomputedTags) > 0 {
		tagged = in.PrecomputedTags
		taggingPromptHash = llm.PromptHash("precomputed", in.TrackID)
	} else {
		tagged, taggingPromptHash, err = tagLines(ctx, client, lines)
		if err != nil {
			return nil, nil, err
		}
	}

	lineByID := make(map[string]LineTag, len(tagged))
	for _, l := range tagged {
		lineByID[l.LineID] = l
	}

	sayItBack := selectSayItBack(tagged, in.Counts.SayItBack)

	translationCount := in.Counts.Translation
	translationPool := translationCandidates(tagged, in.LearnerLang)
	if translationCount > 0 && len(translationPool) == 0 {
		warnings = append(warnings, "translation generation skipped: no translatable lines")
		translationCount = 0
	}

	triviaCount := in.Counts.Trivia
	if triviaCount > 0 && len(in.Referents) == 0 {
		warnings = append(warnings, "trivia generation skipped: no referents supplied")
		triviaCount = 0
	}

	var mcqs []Question
	var mcqPromptHash string
	if translationCount > 0 || triviaCount > 0 {
		mcqPool := translationPool
		if len(mcqPool) == 0 {
			mcqPool = tagged
		}
		mcqs, mcqPromptHash, err = generateMCQs(ctx, client, in, mcqPool, in.Referents, lineByID, translationCount, triviaCount)
		if err != nil {
			return nil, nil, err
		}
	}

	promptHash := taggingPromptHash
	if mcqPromptHash != "" {
		promptHash = mcqPromptHash
	}

	var translationQs, triviaQs []Question
	for _, q := range mcqs {
		if q.Type == QuestionTranslation {
			translationQs = append(translationQs, q)
		} else {
			triviaQs = append(triviaQs, q)
		}
	}

	ordered := interleave(sayItBack, translationQs, triviaQs)
	scrambled := scrambleAll(promptHash, ordered)

	pack := &Pack{
		SpecVersion: SpecVersion,
		LineTags:    tagged,
		Questions:   scrambled,
		Generator: Generator{
			Model:      modelNameOrDefault(client),
			PromptHash: promptHash,
			CreatedAt:  time.Now().Unix(),
		},
		Compliance: Compliance{
			ExcerptPolicy: excerptPolicy,
			Attribution:   attributionFor(in),
		},
	}

	if err := Validate(*pack); err != nil {
		return nil, warnings, err
	}
	return pack, warnings, nil
}

func modelNameOrDefault(client *llm.Client) string {
	if client == nil {
		return "none"
	}
	return client.ModelName()
}

func attributionFor(in Input) string {
	if in.GeniusSongID != "" {
		return fmt.Sprintf("lyrics and referents via Genius song %s", in.GeniusSongID)
	}
	return "lyrics provided by the requesting client"
}
