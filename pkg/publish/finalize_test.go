package publish

import (
	"context"
	"testing"

	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

func TestFinalize_IdempotentAfterAlreadyRegistered(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:         "job-fin-1",
		UserAddress:   "0xabc",
		PublishType:   storage.PublishTypeOriginal,
		Status:        storage.StatusRegistered,
		MegaethTxHash: strPtr("0xdeadbeef"),
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	result, err := svc.Finalize(ctx, "job-fin-1", "0xabc", FinalizeInput{Title: "t", Artist: "a"})
	if err != nil {
		t.Fatalf("Finalize returned error on an already-finalized job: %v", err)
	}
	if result.TrackRegistered || result.ContentRegistered {
		t.Fatalf("expected no further registration to run once already finalized")
	}
	if result.Job.Status != storage.StatusRegistered {
		t.Fatalf("expected job to remain registered, got %s", result.Job.Status)
	}
}

func TestFinalize_RequiresChainConfigured(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-fin-2",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusAnchored,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	_, err := svc.Finalize(ctx, "job-fin-2", "0xabc", FinalizeInput{Title: "t", Artist: "a"})
	if err == nil {
		t.Fatalf("expected config_missing error without a chain adapter")
	}
}

func TestFinalize_RejectsWrongStatus(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-fin-3",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusStaged,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	_, err := svc.Finalize(ctx, "job-fin-3", "0xabc", FinalizeInput{Title: "t", Artist: "a"})
	if err == nil {
		t.Fatalf("expected invalid_status error for a job still in status staged")
	}
}
