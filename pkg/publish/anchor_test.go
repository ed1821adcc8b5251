package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

func newTestUploaderServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"staged-1"}`))
	})
	mux.HandleFunc("/post/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func TestAnchor_HappyPath(t *testing.T) {
	store := newTestStore(t)
	srv := newTestUploaderServer(t)
	defer srv.Close()
	up := uploader.New(uploader.Config{BaseURL: srv.URL, GatewayBaseURL: srv.URL})
	svc := NewService(store, up, nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-1",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusPolicyPassed,
		StagedID:    strPtr("staged-1"),
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	got, err := svc.Anchor(ctx, "job-1", "0xabc")
	if err != nil {
		t.Fatalf("Anchor returned error: %v", err)
	}
	if got.Status != storage.StatusAnchored {
		t.Fatalf("expected status anchored, got %s", got.Status)
	}
	if got.ArweaveRef == nil || *got.ArweaveRef != "ar://staged-1" {
		t.Fatalf("expected arweave ref ar://staged-1, got %v", got.ArweaveRef)
	}
	if !got.ArweaveAvailable {
		t.Fatalf("expected arweave availability to be true after a successful probe")
	}
}

func TestAnchor_WrongStatusConflicts(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-2",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusStaged,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	if _, err := svc.Anchor(ctx, "job-2", "0xabc"); err == nil {
		t.Fatalf("expected an error anchoring a job still in status staged")
	}
}

func TestAnchor_IdempotentOnAlreadyAnchored(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	ref := "ar://staged-4"
	job := &storage.PublishJob{
		JobID:       "job-4",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusAnchored,
		StagedID:    strPtr("staged-4"),
		ArweaveRef:  &ref,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	got, err := svc.Anchor(ctx, "job-4", "0xabc")
	if err != nil {
		t.Fatalf("Anchor returned error on an already-anchored job: %v", err)
	}
	if got.Status != storage.StatusAnchored {
		t.Fatalf("expected status to remain anchored, got %s", got.Status)
	}
	if got.ArweaveRef == nil || *got.ArweaveRef != ref {
		t.Fatalf("expected the existing arweave ref to be returned unchanged, got %v", got.ArweaveRef)
	}
}

func TestAnchor_UploadFailureRollsBack(t *testing.T) {
	store := newTestStore(t)
	// An uploader pointed at a server that 500s on every request anchors a
	// job back to policy_passed rather than leaving it stuck in anchoring.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	up := uploader.New(uploader.Config{BaseURL: srv.URL, GatewayBaseURL: srv.URL})
	svc := NewService(store, up, nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-3",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusPolicyPassed,
		StagedID:    strPtr("staged-3"),
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	if _, err := svc.Anchor(ctx, "job-3", "0xabc"); err == nil {
		t.Fatalf("expected an upstream error when the uploader rejects the post")
	}

	reloaded, err := store.GetPublishJob(ctx, "job-3")
	if err != nil {
		t.Fatalf("couldn't reload job: %v", err)
	}
	if reloaded.Status != storage.StatusPolicyPassed {
		t.Fatalf("expected rollback to policy_passed, got %s", reloaded.Status)
	}
	if reloaded.ReasonCode != "anchor_failed" {
		t.Fatalf("expected reason code anchor_failed, got %q", reloaded.ReasonCode)
	}
}
