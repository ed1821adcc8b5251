package publish

import (
	"context"
	"testing"

	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

func TestStageArtifacts_StagesCoverAndLyrics(t *testing.T) {
	store := newTestStore(t)
	srv := newTestUploaderServer(t)
	defer srv.Close()
	up := uploader.New(uploader.Config{BaseURL: srv.URL, GatewayBaseURL: srv.URL})
	svc := NewService(store, up, nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-art-1",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusStaged,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	got, err := svc.StageArtifacts(ctx, "job-art-1", "0xabc", ArtifactsInput{
		Cover:            []byte("fake cover bytes"),
		CoverContentType: "image/png",
		LyricsText:       "verse one\nchorus",
	})
	if err != nil {
		t.Fatalf("StageArtifacts returned error: %v", err)
	}
	if got.CoverID == nil || *got.CoverID != "staged-1" {
		t.Fatalf("expected cover to be staged, got %v", got.CoverID)
	}
	if got.LyricsID == nil || *got.LyricsID != "staged-1" {
		t.Fatalf("expected lyrics to be staged, got %v", got.LyricsID)
	}
	if got.LyricsSha256 == nil {
		t.Fatalf("expected lyrics sha256 to be set")
	}
}

func TestStageArtifacts_RejectsOversizedCover(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-art-2",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusStaged,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	_, err := svc.StageArtifacts(ctx, "job-art-2", "0xabc", ArtifactsInput{
		Cover:            make([]byte, maxCoverBytes+1),
		CoverContentType: "image/png",
	})
	if err == nil {
		t.Fatalf("expected cover_too_large error")
	}
}

func TestStageArtifacts_RejectsWrongStatus(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-art-3",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusRejected,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	_, err := svc.StageArtifacts(ctx, "job-art-3", "0xabc", ArtifactsInput{
		LyricsText: "anything",
	})
	if err == nil {
		t.Fatalf("expected invalid_status error for a rejected job")
	}
}

func TestStageArtifacts_IsIdempotentPerArtifact(t *testing.T) {
	store := newTestStore(t)
	srv := newTestUploaderServer(t)
	defer srv.Close()
	up := uploader.New(uploader.Config{BaseURL: srv.URL, GatewayBaseURL: srv.URL})
	svc := NewService(store, up, nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:       "job-art-4",
		UserAddress: "0xabc",
		PublishType: storage.PublishTypeOriginal,
		Status:      storage.StatusStaged,
		CoverID:     strPtr("already-staged"),
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	got, err := svc.StageArtifacts(ctx, "job-art-4", "0xabc", ArtifactsInput{
		Cover:            []byte("new cover bytes"),
		CoverContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("StageArtifacts returned error: %v", err)
	}
	if got.CoverID == nil || *got.CoverID != "already-staged" {
		t.Fatalf("expected the existing cover id to be left untouched, got %v", got.CoverID)
	}
}
