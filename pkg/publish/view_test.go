package publish

import (
	"context"
	"testing"

	"github.com/originform/publishctl/pkg/storage"
)

func TestNewView_NilJobReturnsNil(t *testing.T) {
	if v := NewView(nil); v != nil {
		t.Fatalf("expected nil view for nil job, got %+v", v)
	}
}

func TestNewView_MirrorsTempoTxHashAlias(t *testing.T) {
	job := &storage.PublishJob{
		JobID:         "job-view-1",
		MegaethTxHash: strPtr("0xabc123"),
	}
	v := NewView(job)
	if v.MegaethTxHash == nil || v.TempoTxHash == nil {
		t.Fatalf("expected both tx hash fields to be set")
	}
	if *v.MegaethTxHash != *v.TempoTxHash {
		t.Fatalf("expected tempoTxHash to alias megaethTxHash, got %q vs %q", *v.TempoTxHash, *v.MegaethTxHash)
	}
}

func TestGet_NotFoundForWrongUser(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, nil, nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-view-2",
		UserAddress: "0xowner",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusStaged,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	if _, err := svc.Get(ctx, "job-view-2", "0xsomeoneelse"); err == nil {
		t.Fatalf("expected not_found when the job belongs to a different user")
	}
}
