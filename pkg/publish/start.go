package publish

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

// checkPublishAllowed is the identity/ban gate SPEC_FULL.md adds ahead
// of every other start check: an unverified identity or an active
// upload ban 403s before any bytes are touched.
func (s *Service) checkPublishAllowed(ctx context.Context, userAddress string) error {
	identity, err := s.store.GetUserIdentity(ctx, userAddress)
	if err != nil && err != storage.ErrNotFound {
		return apierr.Internal("storage_error", err.Error())
	}
	if err == storage.ErrNotFound || !identity.Verified {
		return apierr.Forbidden("identity_unverified", "user identity is not verified")
	}
	ban, err := s.store.ActiveBan(ctx, userAddress, time.Now())
	if err != nil {
		return apierr.Internal("storage_error", err.Error())
	}
	if ban != nil {
		return apierr.Forbidden("upload_banned", "user is currently banned from publishing")
	}
	return nil
}

var audioSha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// StartInput is the multipart body of POST /publish/start (spec §6).
type StartInput struct {
	UserAddress     string
	FileName        string
	ContentType     string
	File            []byte
	PublishType     string
	AudioSha256     string
	Fingerprint     string
	DurationS       *int
	IdempotencyKey  string
}

// Start ingests an upload: shape validation, the rolling rate-limit
// window, idempotency-key replay, and staging to the content-addressed
// uploader (spec §4.1 "start").
func (s *Service) Start(ctx context.Context, in StartInput) (*storage.PublishJob, error) {
	if err := s.checkPublishAllowed(ctx, in.UserAddress); err != nil {
		return nil, err
	}
	if !s.uploader.Configured() {
		return nil, apierr.Validation("config_missing", "the content uploader is not configured")
	}
	if len(in.File) == 0 {
		return nil, apierr.Validation("file_empty", "uploaded file is empty")
	}
	if len(in.File) > maxUploadBytes {
		return nil, apierr.Validation("file_too_large", "uploaded file exceeds 50 MiB")
	}
	if !strings.HasPrefix(in.ContentType, "audio/") {
		return nil, apierr.Validation("bad_content_type", "content type must be audio/*")
	}
	publishType := in.PublishType
	if publishType == "" {
		publishType = storage.PublishTypeOriginal
	}
	if publishType == storage.PublishTypeOriginal {
		sha := strings.ToLower(strings.TrimSpace(in.AudioSha256))
		if !audioSha256Pattern.MatchString(sha) {
			return nil, apierr.Validation("audio_sha256_required", "original publishes require a 32-byte hex audio_sha256")
		}
		in.AudioSha256 = sha
	}

	if in.IdempotencyKey != "" {
		existing, err := s.store.FindByIdempotencyKey(ctx, in.UserAddress, in.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if err != storage.ErrNotFound {
			return nil, apierr.Internal("storage_error", err.Error())
		}
	}

	count, bytes, err := s.store.RollingWindowUsage(ctx, in.UserAddress, time.Now().Add(-rollingWindow))
	if err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	if count >= rollingMaxCount || bytes+int64(len(in.File)) > rollingMaxBytes {
		return nil, apierr.RateLimited("rate_limited", "24-hour publish rate limit exceeded")
	}

	staged, err := s.uploader.Stage(ctx, in.FileName, in.ContentType, in.File, []uploader.Tag{
		{Key: "kind", Value: "publish_audio"},
		{Key: "publish_type", Value: publishType},
	})
	if err != nil {
		return nil, apierr.Upstream("stage_failed", err.Error()).WithDetails(err.Error())
	}

	job := &storage.PublishJob{
		JobID:       storage.NewJobID(),
		UserAddress: in.UserAddress,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		FileSize:    int64(len(in.File)),
		PublishType: publishType,
		Status:      storage.StatusStaged,
		StagedID:        &staged.ID,
		StagedURL:       &staged.GatewayURL,
		StagedPayload:   staged.Payload,
	}
	if in.AudioSha256 != "" {
		job.AudioSha256 = &in.AudioSha256
	}
	if in.Fingerprint != "" {
		fp := in.Fingerprint
		job.Fingerprint = &fp
	}
	if in.DurationS != nil {
		job.DurationS = in.DurationS
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		job.IdempotencyKey = &key
	}

	if err := s.store.CreatePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return job, nil
}
