package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/originform/publishctl/pkg/cache"
)

func TestResolveByEmbeddedMBIDStopsCascade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/recording/11111111-1111-1111-8111-111111111111" {
			w.WriteHeader(http.StatusOK)
			return
		}
		t.Fatalf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	c := New(Config{MusicBrainzBaseURL: srv.URL})
	r := NewResolver(c, cache.NewMemory())
	res := r.Resolve(context.Background(), Raw{Title: "a", Artist: "b", MBID: "11111111-1111-1111-8111-111111111111"}, "", "")
	if res.Confidence != 0.98 {
		t.Fatalf("Confidence = %v, want 0.98", res.Confidence)
	}
	if res.MBID != "11111111-1111-1111-8111-111111111111" {
		t.Fatalf("MBID = %q", res.MBID)
	}
}

func TestResolveByISRCScoresBestCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := mbSearchResponse{Recordings: []mbRecordingResponse{
			{ID: "aaaa", Title: "Midnight City", Length: 241000, ArtistCredit: []struct {
				Name string `json:"name"`
			}{{Name: "M83"}}},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(Config{MusicBrainzBaseURL: srv.URL})
	r := NewResolver(c, cache.NewMemory())
	res := r.Resolve(context.Background(), Raw{Title: "Midnight City", Artist: "M83", DurationS: 241, ISRC: "USRC17607839"}, "", "")
	if res.MBID != "aaaa" {
		t.Fatalf("MBID = %q", res.MBID)
	}
	if res.Confidence <= 0.70 || res.Confidence > 0.92 {
		t.Fatalf("Confidence out of range: %v", res.Confidence)
	}
}

func TestResolveUnresolvedWhenNothingMatches(t *testing.T) {
	r := NewResolver(nil, cache.NewMemory())
	res := r.Resolve(context.Background(), Raw{Title: "x", Artist: "y"}, "", "")
	if res.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", res.Confidence)
	}
	if len(res.Provenance) != 1 || res.Provenance[0] != "unresolved" {
		t.Fatalf("Provenance = %v", res.Provenance)
	}
	if res.Normalized.TrackKey == "" {
		t.Fatalf("expected track_key to always be populated")
	}
}
