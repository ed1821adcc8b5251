package publish

import (
	"context"
	"strings"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

var artifactStageableStatuses = map[string]bool{
	storage.StatusStaged:       true,
	storage.StatusChecking:     true,
	storage.StatusManualReview: true,
	storage.StatusPolicyPassed: true,
	// rejected is listed in spec §4.1 as a status stage_artifacts is
	// allowed from, but re-attempting a rejected job is explicitly
	// disallowed, so it is intentionally absent here.
}

// ArtifactsInput is the multipart body of POST
// /publish/{jobId}/artifacts/stage (spec §6).
type ArtifactsInput struct {
	Cover            []byte
	CoverContentType string
	LyricsText       string
}

// StageArtifacts uploads whichever of cover/lyrics are both supplied and
// not already staged, merging the result into the job (spec §4.1
// "stage_artifacts"). Idempotent per artifact.
func (s *Service) StageArtifacts(ctx context.Context, jobID, userAddress string, in ArtifactsInput) (*storage.PublishJob, error) {
	job, err := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if !artifactStageableStatuses[job.Status] {
		return nil, apierr.Conflict("invalid_status", "job status does not allow staging artifacts: "+job.Status)
	}

	if len(in.Cover) > 0 && job.CoverID == nil {
		if len(in.Cover) > maxCoverBytes {
			return nil, apierr.Validation("cover_too_large", "cover image exceeds 10 MiB")
		}
		contentType := in.CoverContentType
		if !strings.HasPrefix(contentType, "image/") {
			return nil, apierr.Validation("bad_cover_content_type", "cover content type must be image/*")
		}
		staged, err := s.uploader.Stage(ctx, "cover", contentType, in.Cover, []uploader.Tag{
			{Key: "kind", Value: "publish_cover"}, {Key: "job_id", Value: jobID},
		})
		if err != nil {
			return nil, apierr.Upstream("stage_failed", err.Error()).WithDetails(err.Error())
		}
		job.CoverID = &staged.ID
		job.CoverURL = &staged.GatewayURL
		job.CoverContentType = &contentType
		size := int64(len(in.Cover))
		job.CoverSize = &size
	}

	if in.LyricsText != "" && job.LyricsID == nil {
		if len([]byte(in.LyricsText)) > maxLyricsBytes {
			return nil, apierr.Validation("lyrics_too_large", "lyrics text exceeds 256 KiB")
		}
		body := []byte(in.LyricsText)
		staged, err := s.uploader.Stage(ctx, "lyrics.txt", "text/plain; charset=utf-8", body, []uploader.Tag{
			{Key: "kind", Value: "publish_lyrics"}, {Key: "job_id", Value: jobID},
		})
		if err != nil {
			return nil, apierr.Upstream("stage_failed", err.Error()).WithDetails(err.Error())
		}
		job.LyricsID = &staged.ID
		job.LyricsURL = &staged.GatewayURL
		sha := "0x" + sha256Hex(body)
		job.LyricsSha256 = &sha
		size := int64(len(body))
		job.LyricsSize = &size
	}

	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return job, nil
}

func translateLookupErr(err error) error {
	if err == storage.ErrNotFound {
		return apierr.NotFound("job_not_found", "publish job not found")
	}
	return apierr.Internal("storage_error", err.Error())
}
