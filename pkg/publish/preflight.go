package publish

import (
	"context"
	"strings"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/storage"
)

var preflightAllowedStatuses = map[string]bool{
	storage.StatusStaged:       true,
	storage.StatusChecking:     true,
	storage.StatusManualReview: true,
	storage.StatusPolicyPassed: true,
	storage.StatusRejected:     true,
}

// PreflightInput is the JSON body of POST /preflight (spec §6).
type PreflightInput struct {
	PublishType     string
	Fingerprint     string
	DurationS       *int
	ParentIPIDs     []string
	LicenseTermsIDs []string
}

// PreflightResult is the checks summary + duplicate list the operation
// returns alongside the job (spec §4.1 "preflight").
type PreflightResult struct {
	Job                *storage.PublishJob
	HashDuplicate      bool
	AcoustID           string
	DuplicateCandidates []string
}

// Preflight runs the policy checks of spec §4.1 "preflight": hash
// verification and duplicate scan for original publishes, parent/terms
// shape validation for derivative/cover.
func (s *Service) Preflight(ctx context.Context, jobID, userAddress string, in PreflightInput) (*PreflightResult, error) {
	job, err := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if !preflightAllowedStatuses[job.Status] {
		return nil, apierr.Conflict("invalid_status", "job status does not allow preflight: "+job.Status)
	}

	publishType := job.PublishType
	if in.PublishType != "" {
		publishType = in.PublishType
	}
	if in.Fingerprint != "" {
		job.Fingerprint = &in.Fingerprint
	}
	if in.DurationS != nil {
		job.DurationS = in.DurationS
	}

	if err := s.store.CompareAndSetStatus(ctx, jobID, job.Status, storage.StatusChecking, nil); err != nil {
		if err == storage.ErrNoRowsAffected {
			return nil, conflictCurrentStatus(ctx, s, jobID, userAddress)
		}
		return nil, apierr.Internal("storage_error", err.Error())
	}
	job.Status = storage.StatusChecking

	if publishType == storage.PublishTypeOriginal {
		return s.preflightOriginal(ctx, job)
	}
	return s.preflightLicensedDerivative(ctx, job, publishType, in)
}

func (s *Service) preflightOriginal(ctx context.Context, job *storage.PublishJob) (*PreflightResult, error) {
	if job.AudioSha256 == nil || job.StagedURL == nil {
		return s.rejectJob(ctx, job, "missing_hash_or_staged_url", "original publishes must carry audio_sha256 and a staged gateway URL")
	}

	body, err := s.uploader.Download(ctx, *job.StagedURL)
	if err != nil {
		return s.pendingJob(ctx, job, "hash_verification_unavailable")
	}
	if len(body) > maxUploadBytes {
		return s.rejectJob(ctx, job, "file_too_large", "staged bytes exceed 50 MiB")
	}

	computed := sha256Hex(body)
	if computed != strings.ToLower(*job.AudioSha256) {
		return s.rejectJob(ctx, job, "hash_mismatch", "recomputed sha256 does not match declared audio_sha256")
	}

	duplicates, err := s.store.FindDuplicateAudio(ctx, *job.AudioSha256, job.JobID)
	if err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	hashDuplicate := len(duplicates) > 0
	duplicateIDs := make([]string, len(duplicates))
	for i, d := range duplicates {
		duplicateIDs[i] = d.JobID
	}

	reasonCode := ""
	decision := storage.PolicyPass
	if hashDuplicate {
		reasonCode = "warn_duplicate_found"
	}
	if job.CoverID == nil || job.LyricsID == nil || job.Fingerprint == nil {
		decision = storage.PolicyManualReview
		switch {
		case job.CoverID == nil:
			reasonCode = "missing_cover"
		case job.LyricsID == nil:
			reasonCode = "missing_lyrics"
		default:
			reasonCode = "missing_fingerprint"
		}
	}

	job.PolicyDecision = decision
	job.ReasonCode = reasonCode
	nextStatus := storage.StatusPolicyPassed
	if decision == storage.PolicyManualReview {
		nextStatus = storage.StatusManualReview
	}
	job.Status = nextStatus
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return &PreflightResult{Job: job, HashDuplicate: hashDuplicate, AcoustID: "deferred_not_implemented", DuplicateCandidates: duplicateIDs}, nil
}

func (s *Service) preflightLicensedDerivative(ctx context.Context, job *storage.PublishJob, publishType string, in PreflightInput) (*PreflightResult, error) {
	if len(in.ParentIPIDs) == 0 || len(in.LicenseTermsIDs) == 0 || len(in.ParentIPIDs) != len(in.LicenseTermsIDs) {
		return s.rejectJob(ctx, job, "invalid_parent_terms", "derivative/cover publishes require equal-length non-empty parent_ip_ids and license_terms_ids")
	}
	job.PublishType = publishType
	job.ParentIPIDsJSON = encodeStringArray(in.ParentIPIDs)
	job.LicenseTermsIDsJSON = encodeStringArray(in.LicenseTermsIDs)
	job.PolicyDecision = storage.PolicyPass
	job.ReasonCode = ""
	job.Status = storage.StatusPolicyPassed
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return &PreflightResult{Job: job, AcoustID: "deferred_not_implemented"}, nil
}

// rejectJob sets a terminal rejected status with a reason; spec §4.1
// treats "rejected" as absorbing.
func (s *Service) rejectJob(ctx context.Context, job *storage.PublishJob, code, reason string) (*PreflightResult, error) {
	job.PolicyDecision = storage.PolicyReject
	job.ReasonCode = code
	job.ReasonText = reason
	job.Status = storage.StatusRejected
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return &PreflightResult{Job: job}, nil
}

// pendingJob keeps the job at staged with decision=pending, the
// hash_verification_unavailable soft-failure path (spec §4.1 step 2).
func (s *Service) pendingJob(ctx context.Context, job *storage.PublishJob, code string) (*PreflightResult, error) {
	job.PolicyDecision = storage.PolicyPending
	job.ReasonCode = code
	job.Status = storage.StatusStaged
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return nil, apierr.Upstream(code, "could not download staged bytes to verify hash").WithJob(job)
}

func conflictCurrentStatus(ctx context.Context, s *Service, jobID, userAddress string) error {
	current, err := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
	if err != nil {
		return translateLookupErr(err)
	}
	return apierr.Conflict("invalid_status", "job status changed concurrently: "+current.Status).WithJob(current)
}

func encodeStringArray(vs []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(v, `"`, `\"`))
		b.WriteByte('"')
	}
	b.WriteByte(']')
	return b.String()
}
