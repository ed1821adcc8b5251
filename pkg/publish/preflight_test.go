package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

func TestPreflight_HashMismatchRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("actual staged bytes"))
	}))
	defer srv.Close()

	store := newTestStore(t)
	up := uploader.New(uploader.Config{BaseURL: srv.URL})
	svc := NewService(store, up, nil)

	ctx := context.Background()
	stagedURL := srv.URL + "/staged"
	job := &storage.PublishJob{
		JobID:       "job-pf-1",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusStaged,
		AudioSha256: strPtr(sha256Hex([]byte("different bytes than what's staged"))),
		StagedURL:   &stagedURL,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	result, err := svc.Preflight(ctx, "job-pf-1", "0xabc", PreflightInput{})
	if err != nil {
		t.Fatalf("Preflight returned error: %v", err)
	}
	if result.Job.Status != storage.StatusRejected {
		t.Fatalf("expected status rejected on hash mismatch, got %s", result.Job.Status)
	}
	if result.Job.ReasonCode != "hash_mismatch" {
		t.Fatalf("expected reason code hash_mismatch, got %q", result.Job.ReasonCode)
	}
}

func TestPreflight_HashUnavailableKeepsJobPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := newTestStore(t)
	up := uploader.New(uploader.Config{BaseURL: srv.URL})
	svc := NewService(store, up, nil)

	ctx := context.Background()
	stagedURL := srv.URL + "/staged"
	job := &storage.PublishJob{
		JobID:       "job-pf-2",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusStaged,
		AudioSha256: strPtr(sha256Hex([]byte("whatever"))),
		StagedURL:   &stagedURL,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	_, err := svc.Preflight(ctx, "job-pf-2", "0xabc", PreflightInput{})
	if err == nil {
		t.Fatalf("expected an upstream error when staged bytes cannot be downloaded")
	}

	reloaded, rerr := store.GetPublishJob(ctx, "job-pf-2")
	if rerr != nil {
		t.Fatalf("couldn't reload job: %v", rerr)
	}
	if reloaded.Status != storage.StatusStaged {
		t.Fatalf("expected job to remain staged pending retry, got %s", reloaded.Status)
	}
	if reloaded.PolicyDecision != storage.PolicyPending {
		t.Fatalf("expected policy decision pending, got %s", reloaded.PolicyDecision)
	}
}

func TestPreflight_DerivativeRequiresParents(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-pf-3",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeDerivative,
		Status:      storage.StatusStaged,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	result, err := svc.Preflight(ctx, "job-pf-3", "0xabc", PreflightInput{PublishType: storage.PublishTypeDerivative})
	if err != nil {
		t.Fatalf("Preflight returned error: %v", err)
	}
	if result.Job.Status != storage.StatusRejected {
		t.Fatalf("expected rejection for a derivative with no parents, got %s", result.Job.Status)
	}
}
