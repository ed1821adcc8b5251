// Package httpapi wires the publish, study-set, and resolver services to
// the chi router the teacher's pkg/cmd/web/web.go uses, with the
// {error, details?, job?} envelope of spec §6 instead of plain
// http.Error text.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/originform/publishctl/pkg/llm"
	"github.com/originform/publishctl/pkg/publish"
	"github.com/originform/publishctl/pkg/resolver"
)

// Config assembles the router's collaborators. Authentication itself is
// out of scope (spec §1 Non-goals); userAddressHeader names the header
// an upstream auth layer is expected to populate after verifying the
// caller, mirroring the teacher's BasicAuth-then-handler layering.
type Config struct {
	Debug             bool
	UserAddressHeader string
}

const defaultUserAddressHeader = "X-User-Address"

// NewRouter builds the full HTTP surface: the publish state machine
// (spec §6 core table) plus pragmatic endpoints for invoking the
// study-set and resolver pipelines directly.
func NewRouter(cfg Config, publishSvc *publish.Service, llmClient *llm.Client, trackResolver *resolver.Resolver) http.Handler {
	header := cfg.UserAddressHeader
	if header == "" {
		header = defaultUserAddressHeader
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))
	if cfg.Debug {
		mux.Use(middleware.Logger)
	}

	h := &handlers{publish: publishSvc, llm: llmClient, resolver: trackResolver, userHeader: header}

	mux.Post("/publish/start", h.start)
	mux.Post("/publish/{jobId}/artifacts/stage", h.stageArtifacts)
	mux.Post("/preflight", h.preflight)
	mux.Get("/publish/{jobId}", h.getJob)
	mux.Post("/publish/{jobId}/anchor", h.anchor)
	mux.Post("/publish/{jobId}/metadata", h.metadata)
	mux.Post("/publish/{jobId}/register", h.register)
	mux.Post("/publish/{jobId}/finalize", h.finalize)

	mux.Post("/studyset/generate", h.generateStudySet)
	mux.Post("/resolver/resolve", h.resolveScrobble)

	return mux
}

type handlers struct {
	publish    *publish.Service
	llm        *llm.Client
	resolver   *resolver.Resolver
	userHeader string
}

func (h *handlers) userAddress(r *http.Request) string {
	return r.Header.Get(h.userHeader)
}
