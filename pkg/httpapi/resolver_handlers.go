package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/resolver"
)

type resolveScrobbleBody struct {
	Title                 string `json:"title"`
	Artist                string `json:"artist"`
	Album                 string `json:"album"`
	DurationS             int    `json:"durationS"`
	ISRC                  string `json:"isrc"`
	MBID                  string `json:"mbid"`
	Fingerprint           string `json:"fingerprint"`
	FingerprintClientKey  string `json:"fingerprintClientKey"`
}

// resolveScrobble runs the cascaded identity resolution of spec §4.3, a
// pragmatic addition to the core publish-pipeline route table.
func (h *handlers) resolveScrobble(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		apierr.Write(w, apierr.Validation("config_missing", "the track resolver is not configured"), nil)
		return
	}
	var body resolveScrobbleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.Write(w, apierr.Validation("bad_json", err.Error()), nil)
		return
	}
	res := h.resolver.Resolve(r.Context(), resolver.Raw{
		Title:     body.Title,
		Artist:    body.Artist,
		Album:     body.Album,
		DurationS: body.DurationS,
		ISRC:      body.ISRC,
		MBID:      body.MBID,
	}, body.Fingerprint, body.FingerprintClientKey)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"normalized": res.Normalized,
		"mbid":       res.MBID,
		"confidence": res.Confidence,
		"provenance": res.Provenance,
	})
}
