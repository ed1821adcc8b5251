package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/originform/publishctl/pkg/cache"
)

const (
	mbidCacheTTLPositive = 30 * 24 * time.Hour
	mbidCacheTTLNegative = 7 * 24 * time.Hour
)

// Resolution is the resolver's output: the normalized facets, track_key,
// and a best-effort confidence/provenance trail (spec §4.3).
type Resolution struct {
	Normalized Normalized
	MBID       string
	Confidence float64
	Provenance []string
}

// Resolver runs the ordered cascade of spec §4.3 over a cache-backed
// client. All steps are optional; the normalized form and track_key are
// always returned.
type Resolver struct {
	client *Client
	cache  cache.Store
}

func NewResolver(client *Client, store cache.Store) *Resolver {
	if store == nil {
		store = cache.Null{}
	}
	return &Resolver{client: client, cache: store}
}

// Resolve runs the cascade for one scrobble.
func (r *Resolver) Resolve(ctx context.Context, raw Raw, fingerprint, fingerprintClientKey string) Resolution {
	n := Normalize(raw)
	res := Resolution{Normalized: n, Provenance: []string{}}

	if r.client == nil || !r.client.Configured() {
		res.Provenance = append(res.Provenance, "unresolved")
		return res
	}

	if n.MBIDNorm != "" {
		res.Provenance = append(res.Provenance, "mbid_present")
		if ok := r.verifyMBIDCached(ctx, n.MBIDNorm); ok {
			res.MBID = n.MBIDNorm
			res.Confidence = 0.98
			res.Provenance = append(res.Provenance, "mbid_verified")
			return res
		}
	}

	if n.ISRCNorm != "" {
		if mbid, conf, ok := r.resolveByISRC(ctx, n); ok {
			res.MBID, res.Confidence = mbid, conf
			res.Provenance = append(res.Provenance, "isrc_match")
			return res
		}
		res.Provenance = append(res.Provenance, "isrc_no_match")
	}

	if fingerprint != "" && n.DurationS > 0 && fingerprintClientKey != "" {
		if mbid, conf, ok := r.resolveByFingerprint(ctx, fingerprint, n.DurationS); ok {
			res.MBID, res.Confidence = mbid, conf
			res.Provenance = append(res.Provenance, "fingerprint_match")
			return res
		}
		res.Provenance = append(res.Provenance, "fingerprint_no_match")
	}

	if r.client.cfg.EnableTextSearch && n.TitleNorm != "" && n.ArtistNorm != "" {
		if mbid, conf, ok := r.resolveByTextSearch(ctx, n); ok {
			res.MBID, res.Confidence = mbid, conf
			res.Provenance = append(res.Provenance, "text_search_match")
			return res
		}
		res.Provenance = append(res.Provenance, "text_search_no_match")
	}

	res.Provenance = append(res.Provenance, "unresolved")
	return res
}

func (r *Resolver) verifyMBIDCached(ctx context.Context, mbid string) bool {
	key := "resolver:mbid:" + mbid
	if cached, ok := r.cache.Get(ctx, key); ok {
		return string(cached) == "1"
	}
	ok, err := r.client.LookupByMBID(ctx, mbid)
	if err != nil {
		return false
	}
	ttl := mbidCacheTTLNegative
	value := "0"
	if ok {
		ttl, value = mbidCacheTTLPositive, "1"
	}
	r.cache.Set(ctx, key, []byte(value), ttl)
	return ok
}

// resolveByISRC implements spec §4.3 step 2: accept if best score ≥
// 0.72, confidence min(0.92, 0.70 + 0.30·best).
func (r *Resolver) resolveByISRC(ctx context.Context, n Normalized) (string, float64, bool) {
	candidates, err := r.client.LookupByISRC(ctx, n.ISRCNorm)
	if err != nil || len(candidates) == 0 {
		return "", 0, false
	}
	best, score, found := bestCandidate(n, candidates)
	if !found || score < 0.72 {
		return "", 0, false
	}
	confidence := 0.70 + 0.30*score
	if confidence > 0.92 {
		confidence = 0.92
	}
	return best.MBID, confidence, true
}

// resolveByFingerprint implements spec §4.3 step 3: accept a returned
// MBID with score ≥ 0.80, confidence min(0.95, 0.75 + 0.25·score).
func (r *Resolver) resolveByFingerprint(ctx context.Context, fingerprint string, durationS int) (string, float64, bool) {
	results, err := r.client.LookupFingerprint(ctx, fingerprint, durationS)
	if err != nil || len(results) == 0 {
		return "", 0, false
	}
	top := results[0]
	if top.Score < 0.80 || len(top.Recordings) == 0 || top.Recordings[0].ID == "" {
		return "", 0, false
	}
	confidence := 0.75 + 0.25*top.Score
	if confidence > 0.95 {
		confidence = 0.95
	}
	return top.Recordings[0].ID, confidence, true
}

// resolveByTextSearch implements spec §4.3 step 4, cached by
// normalized-title/artist/duration-bucket.
func (r *Resolver) resolveByTextSearch(ctx context.Context, n Normalized) (string, float64, bool) {
	key := fmt.Sprintf("resolver:text:%s:%s:%s", n.TitleNorm, n.ArtistNorm, durationBucket(n.DurationS))
	if cached, ok := r.cache.Get(ctx, key); ok {
		var c cachedTextResult
		if json.Unmarshal(cached, &c) == nil && c.Found {
			return c.MBID, c.Confidence, true
		}
		return "", 0, false
	}
	candidates, err := r.client.SearchText(ctx, n.TitleNorm, n.ArtistNorm)
	if err != nil || len(candidates) == 0 {
		return "", 0, false
	}
	best, score, found := bestCandidate(n, candidates)
	if !found || score < 0.78 {
		r.cacheTextMiss(ctx, key)
		return "", 0, false
	}
	confidence := 0.60 + 0.25*score
	result := cachedTextResult{Found: true, MBID: best.MBID, Confidence: confidence}
	if b, err := json.Marshal(result); err == nil {
		r.cache.Set(ctx, key, b, 24*time.Hour)
	}
	return best.MBID, confidence, true
}

func (r *Resolver) cacheTextMiss(ctx context.Context, key string) {
	if b, err := json.Marshal(cachedTextResult{Found: false}); err == nil {
		r.cache.Set(ctx, key, b, 24*time.Hour)
	}
}

type cachedTextResult struct {
	Found      bool
	MBID       string
	Confidence float64
}
