package publish

import (
	"context"
	"testing"

	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

func verifyIdentity(t *testing.T, store *storage.Store, userAddress string) {
	t.Helper()
	ctx := context.Background()
	if err := store.SetUserIdentity(ctx, &storage.UserIdentity{UserAddress: userAddress, Verified: true}); err != nil {
		t.Fatalf("couldn't verify identity: %v", err)
	}
}

func TestStart_RejectsUnverifiedIdentity(t *testing.T) {
	store := newTestStore(t)
	srv := newTestUploaderServer(t)
	defer srv.Close()
	up := uploader.New(uploader.Config{BaseURL: srv.URL, GatewayBaseURL: srv.URL})
	svc := NewService(store, up, nil)

	_, err := svc.Start(context.Background(), StartInput{
		UserAddress: "0xnotverified",
		FileName:    "song.mp3",
		ContentType: "audio/mpeg",
		File:        []byte("fake audio bytes"),
		AudioSha256: "1111111111111111111111111111111111111111111111111111111111111111",
	})
	if err == nil {
		t.Fatalf("expected identity_unverified error for an unknown address")
	}
}

func TestStart_RejectsActiveBan(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{BaseURL: "http://example.invalid"}), nil)

	ctx := context.Background()
	verifyIdentity(t, store, "0xbanned")
	if err := store.CreateUploadBan(ctx, &storage.UploadBan{
		ID:          storage.NewJobID(),
		UserAddress: "0xbanned",
		Reason:      "policy violation",
	}); err != nil {
		t.Fatalf("couldn't create ban: %v", err)
	}

	_, err := svc.Start(ctx, StartInput{
		UserAddress: "0xbanned",
		FileName:    "song.mp3",
		ContentType: "audio/mpeg",
		File:        []byte("fake audio bytes"),
		AudioSha256: "1111111111111111111111111111111111111111111111111111111111111111",
	})
	if err == nil {
		t.Fatalf("expected upload_banned error for a banned address")
	}
}

func TestStart_HappyPath(t *testing.T) {
	store := newTestStore(t)
	srv := newTestUploaderServer(t)
	defer srv.Close()
	up := uploader.New(uploader.Config{BaseURL: srv.URL, GatewayBaseURL: srv.URL})
	svc := NewService(store, up, nil)

	ctx := context.Background()
	verifyIdentity(t, store, "0xverified")

	job, err := svc.Start(ctx, StartInput{
		UserAddress: "0xverified",
		FileName:    "song.mp3",
		ContentType: "audio/mpeg",
		File:        []byte("fake audio bytes"),
		AudioSha256: "1111111111111111111111111111111111111111111111111111111111111111",
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if job.Status != storage.StatusStaged {
		t.Fatalf("expected status staged, got %s", job.Status)
	}
	if job.StagedID == nil || *job.StagedID != "staged-1" {
		t.Fatalf("expected staged id from the uploader, got %v", job.StagedID)
	}
}

func TestStart_IdempotencyReplay(t *testing.T) {
	store := newTestStore(t)
	srv := newTestUploaderServer(t)
	defer srv.Close()
	up := uploader.New(uploader.Config{BaseURL: srv.URL, GatewayBaseURL: srv.URL})
	svc := NewService(store, up, nil)

	ctx := context.Background()
	verifyIdentity(t, store, "0xverified")

	in := StartInput{
		UserAddress:    "0xverified",
		FileName:       "song.mp3",
		ContentType:    "audio/mpeg",
		File:           []byte("fake audio bytes"),
		AudioSha256:    "1111111111111111111111111111111111111111111111111111111111111111",
		IdempotencyKey: "key-1",
	}
	first, err := svc.Start(ctx, in)
	if err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	second, err := svc.Start(ctx, in)
	if err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}
	if first.JobID != second.JobID {
		t.Fatalf("expected idempotency-key replay to return the original job, got %s vs %s", first.JobID, second.JobID)
	}
}
