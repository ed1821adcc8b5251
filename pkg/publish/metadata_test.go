package publish

import (
	"context"
	"testing"

	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

func TestMetadata_HappyPath(t *testing.T) {
	store := newTestStore(t)
	srv := newTestUploaderServer(t)
	defer srv.Close()
	up := uploader.New(uploader.Config{BaseURL: srv.URL, GatewayBaseURL: srv.URL})
	svc := NewService(store, up, nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:          "job-meta-1",
		UserAddress:    "0xabc",
		PublishType:    storage.PublishTypeOriginal,
		Status:         storage.StatusAnchored,
		MetadataStatus: storage.MetadataStatusNone,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	got, err := svc.Metadata(ctx, "job-meta-1", "0xabc", MetadataInput{
		IPMetadataJSON:  []byte(`{"name":"track"}`),
		NFTMetadataJSON: []byte(`{"name":"nft"}`),
	})
	if err != nil {
		t.Fatalf("Metadata returned error: %v", err)
	}
	if got.MetadataStatus != storage.MetadataStatusAnchored {
		t.Fatalf("expected metadata status anchored, got %s", got.MetadataStatus)
	}
	if got.IPMetadataURI == nil || got.NFTMetadataURI == nil {
		t.Fatalf("expected both metadata URIs to be set")
	}
	if got.IPMetadataHash == nil || got.NFTMetadataHash == nil {
		t.Fatalf("expected both metadata hashes to be set")
	}
}

func TestMetadata_RejectsNonObjectBody(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:          "job-meta-2",
		UserAddress:    "0xabc",
		PublishType:    storage.PublishTypeOriginal,
		Status:         storage.StatusAnchored,
		MetadataStatus: storage.MetadataStatusNone,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	_, err := svc.Metadata(ctx, "job-meta-2", "0xabc", MetadataInput{
		IPMetadataJSON:  []byte(`["not", "an", "object"]`),
		NFTMetadataJSON: []byte(`{}`),
	})
	if err == nil {
		t.Fatalf("expected an error for a non-object ip metadata body")
	}
}

func TestMetadata_LockContention(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, uploader.New(uploader.Config{}), nil)

	ctx := context.Background()
	job := &storage.PublishJob{
		JobID:          "job-meta-3",
		UserAddress:    "0xabc",
		PublishType:    storage.PublishTypeOriginal,
		Status:         storage.StatusAnchored,
		MetadataStatus: storage.MetadataStatusAnchoring,
	}
	if err := store.CreatePublishJob(ctx, job); err != nil {
		t.Fatalf("couldn't create job: %v", err)
	}

	_, err := svc.Metadata(ctx, "job-meta-3", "0xabc", MetadataInput{
		IPMetadataJSON:  []byte(`{}`),
		NFTMetadataJSON: []byte(`{}`),
	})
	if err == nil {
		t.Fatalf("expected a conflict error when the metadata lock is already held")
	}
}
