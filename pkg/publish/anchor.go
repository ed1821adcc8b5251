package publish

import (
	"context"
	"fmt"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/storage"
)

// Anchor posts the staged audio to the append-only content store and
// records its public reference (spec §4.1 "anchor"). It acquires the
// anchoring lock by conditionally advancing policy_passed → anchoring.
func (s *Service) Anchor(ctx context.Context, jobID, userAddress string) (*storage.PublishJob, error) {
	job, err := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if job.Status == storage.StatusAnchored {
		return job, nil
	}
	if job.Status != storage.StatusPolicyPassed {
		return nil, apierr.Conflict("invalid_status", "job status does not allow anchor: "+job.Status).WithJob(job)
	}
	if err := s.store.CompareAndSetStatus(ctx, jobID, storage.StatusPolicyPassed, storage.StatusAnchoring, nil); err != nil {
		if err == storage.ErrNoRowsAffected {
			return nil, conflictCurrentStatus(ctx, s, jobID, userAddress)
		}
		return nil, apierr.Internal("storage_error", err.Error())
	}
	job.Status = storage.StatusAnchoring

	if job.StagedID == nil {
		return s.anchorFailed(ctx, job, "missing_staged_id")
	}
	if err := s.uploader.Post(ctx, *job.StagedID); err != nil {
		return s.anchorFailed(ctx, job, "anchor_failed")
	}

	gatewayURL := s.uploader.GatewayURL(*job.StagedID)
	available := s.uploader.Probe(ctx, gatewayURL)
	ref := fmt.Sprintf("ar://%s", *job.StagedID)

	job.AnchoredDataItemID = job.StagedID
	job.ArweaveRef = &ref
	job.ArweaveURL = &gatewayURL
	job.ArweaveAvailable = available
	job.Status = storage.StatusAnchored
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return job, nil
}

// anchorFailed rolls the job back to policy_passed and records the
// failure reason (spec §4.1 "anchor": "On failure, rolls status back
// to policy_passed and records anchor_failed").
func (s *Service) anchorFailed(ctx context.Context, job *storage.PublishJob, code string) (*storage.PublishJob, error) {
	job.Status = storage.StatusPolicyPassed
	job.ReasonCode = code
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return nil, apierr.Upstream(code, "failed to anchor staged upload").WithJob(job)
}
