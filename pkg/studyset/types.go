// Package studyset builds a validated language-learning exercise pack
// from raw song lyrics (spec §3.2, §4.2): line collection, per-line
// language/difficulty tagging, deterministic and LLM-assisted question
// selection, schema-validated MCQ normalization, seeded scrambling, and
// interleaved output.
package studyset

const SpecVersion = "exercise-pack-v2"

// LineTag is one deduplicated, tagged lyric line.
type LineTag struct {
	LineID            string  `json:"line_id"`
	LineIndex         int     `json:"line_index"`
	Text              string  `json:"text"`
	Lang              string  `json:"lang"`
	Lang2             string  `json:"lang2,omitempty"`
	Difficulty        float64 `json:"difficulty"`
	DifficultyLLM     float64 `json:"difficulty_llm"`
	DifficultyLexical float64 `json:"difficulty_lexical"`
	FleschKincaid     float64 `json:"flesch_kincaid"`
	Top1kRatio        float64 `json:"top1k_ratio"`
	Top10kRatio       float64 `json:"top10k_ratio"`
	AllPositions      []int   `json:"all_positions"`
	Repeated          bool    `json:"-"` // len(AllPositions) > 1, driving the difficulty penalty
}

// DifficultyBucket is the coarse {easy,medium,hard} bucket used to
// partition say-it-back selection and score MCQ difficulty.
type DifficultyBucket string

const (
	BucketEasy   DifficultyBucket = "easy"
	BucketMedium DifficultyBucket = "medium"
	BucketHard   DifficultyBucket = "hard"
)

// QuestionType discriminates the three question variants of spec §3.2.
type QuestionType string

const (
	QuestionSayItBack    QuestionType = "say_it_back"
	QuestionTranslation  QuestionType = "translation_mcq"
	QuestionTrivia       QuestionType = "trivia_mcq"
)

// SourceClassification is carried only by trivia_mcq, inherited from the
// referent it was built from.
type SourceClassification string

const (
	ClassificationVerified   SourceClassification = "verified"
	ClassificationAccepted   SourceClassification = "accepted"
	ClassificationUnreviewed SourceClassification = "unreviewed"
)

// Question is the tagged union of spec §3.2: fields not applicable to a
// given Type are left zero-valued (say_it_back carries no choices; only
// trivia_mcq carries SourceClassification).
type Question struct {
	Type                 QuestionType         `json:"type"`
	ID                   string               `json:"id"`
	Prompt               string               `json:"prompt"`
	Excerpt              string               `json:"excerpt"`
	ExcerptLang          string               `json:"excerpt_lang,omitempty"`
	SourceLineID         string               `json:"source_line_id"`
	Difficulty           DifficultyBucket     `json:"difficulty"`
	DifficultyScore      float64              `json:"difficulty_score"`
	Choices              []string             `json:"choices,omitempty"`
	CorrectIndex         int                  `json:"correct_index,omitempty"`
	Explanation          string               `json:"explanation,omitempty"`
	ChoiceRationales     []string             `json:"choice_rationales,omitempty"`
	SourceClassification SourceClassification `json:"source_classification,omitempty"`
}

func (q Question) isMCQ() bool {
	return q.Type == QuestionTranslation || q.Type == QuestionTrivia
}

// Generator records provenance of the LLM call(s) behind a pack.
type Generator struct {
	Model      string `json:"model"`
	PromptHash string `json:"prompt_hash"` // 0x-prefixed, 66 chars
	CreatedAt  int64  `json:"created_at"`  // unix seconds, > 0
}

// Compliance fixes the excerpt policy and attribution text.
type Compliance struct {
	ExcerptPolicy string `json:"excerpt_policy"`
	Attribution   string `json:"attribution"`
}

const excerptPolicy = "max-one-line-per-question"

// Pack is the finished, validated study-set artifact.
type Pack struct {
	SpecVersion string     `json:"spec_version"`
	LineTags    []LineTag  `json:"line_tags"`
	Questions   []Question `json:"questions"`
	Generator   Generator  `json:"generator"`
	Compliance  Compliance `json:"compliance"`
}

// Referent is an external lyric annotation (spec §4.2 input), one
// candidate source for a trivia question.
type Referent struct {
	Fragment       string
	Annotation     string
	Classification SourceClassification
	Votes          int
}

// Counts are the target question counts per variant (spec §4.2 input).
type Counts struct {
	Translation int
	Trivia      int
	SayItBack   int
}

// Input bundles everything the pipeline needs (spec §4.2).
type Input struct {
	LearnerLang      string
	TrackID          string
	Title            string
	Artist           string
	RawLyrics        string
	CanonicalLyrics  string
	GeniusSongID     string
	Referents        []Referent
	Counts           Counts
	PrecomputedTags  []LineTag // optional, bypasses language/difficulty LLM call when set
}
