package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/studyset"
)

type referentBody struct {
	Fragment       string                          `json:"fragment"`
	Annotation     string                           `json:"annotation"`
	Classification studyset.SourceClassification    `json:"classification"`
	Votes          int                              `json:"votes"`
}

type generateStudySetBody struct {
	LearnerLang     string         `json:"learnerLang"`
	TrackID         string         `json:"trackId"`
	Title           string         `json:"title"`
	Artist          string         `json:"artist"`
	RawLyrics       string         `json:"rawLyrics"`
	CanonicalLyrics string         `json:"canonicalLyrics"`
	GeniusSongID    string         `json:"geniusSongId"`
	Referents       []referentBody `json:"referents"`
	Translation     int            `json:"translation"`
	Trivia          int            `json:"trivia"`
	SayItBack       int            `json:"sayItBack"`
}

// generateStudySet runs the study-set pipeline over raw lyrics (spec
// §4.2), a pragmatic addition to the core publish-pipeline route table.
func (h *handlers) generateStudySet(w http.ResponseWriter, r *http.Request) {
	var body generateStudySetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.Write(w, apierr.Validation("bad_json", err.Error()), nil)
		return
	}
	referents := make([]studyset.Referent, len(body.Referents))
	for i, ref := range body.Referents {
		referents[i] = studyset.Referent{
			Fragment:       ref.Fragment,
			Annotation:     ref.Annotation,
			Classification: ref.Classification,
			Votes:          ref.Votes,
		}
	}
	pack, warnings, err := studyset.Generate(r.Context(), h.llm, studyset.Input{
		LearnerLang:     body.LearnerLang,
		TrackID:         body.TrackID,
		Title:           body.Title,
		Artist:          body.Artist,
		RawLyrics:       body.RawLyrics,
		CanonicalLyrics: body.CanonicalLyrics,
		GeniusSongID:    body.GeniusSongID,
		Referents:       referents,
		Counts: studyset.Counts{
			Translation: body.Translation,
			Trivia:      body.Trivia,
			SayItBack:   body.SayItBack,
		},
	})
	if err != nil {
		apierr.Write(w, apierr.Validation("generate_failed", err.Error()), nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"pack": pack, "warnings": warnings})
}
