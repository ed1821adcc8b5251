package publish

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/chain"
	"github.com/originform/publishctl/pkg/storage"
)

var finalizeAllowedStatuses = map[string]bool{
	storage.StatusPolicyPassed: true,
	storage.StatusAnchored:     true,
	storage.StatusRegistered:   true,
}

var hexPieceCIDPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]*$`)

// FinalizeInput is the JSON body of POST /publish/{jobId}/finalize
// (spec §6, §4.1).
type FinalizeInput struct {
	Title         string
	Artist        string
	Album         string
	DurationS     *int
	PieceCID      string
	DatasetOwner  string
	Algo          *int
}

// FinalizeResult reports which of the two best-effort on-chain actions
// actually executed, distinguishing "already registered" from "just
// registered" (spec §8 scenario 5).
type FinalizeResult struct {
	Job               *storage.PublishJob
	TrackRegistered   bool
	ContentRegistered bool
}

// Finalize performs the secondary registration described in spec §4.1:
// deriving track_id/content_id via keccak256(abi.encode(...)) and
// registering both, each wait wrapped in a cancelable per-tx timeout
// that rechecks on-chain state before surfacing a failure.
func (s *Service) Finalize(ctx context.Context, jobID, userAddress string, in FinalizeInput) (*FinalizeResult, error) {
	job, err := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if job.Status == storage.StatusRegistered && job.MegaethTxHash != nil {
		return &FinalizeResult{Job: job}, nil
	}
	if !finalizeAllowedStatuses[job.Status] {
		return nil, apierr.Conflict("invalid_status", "job status does not allow finalize: "+job.Status)
	}
	if s.chain == nil {
		return nil, apierr.Validation("config_missing", "chain adapter is not configured")
	}
	if len([]byte(in.Title)) == 0 || len([]byte(in.Title)) > maxTitleBytes {
		return nil, apierr.Validation("bad_title", "title must be 1-128 bytes")
	}
	if len([]byte(in.Artist)) == 0 || len([]byte(in.Artist)) > maxTitleBytes {
		return nil, apierr.Validation("bad_artist", "artist must be 1-128 bytes")
	}
	if len([]byte(in.Album)) > maxTitleBytes {
		return nil, apierr.Validation("bad_album", "album must be at most 128 bytes")
	}
	if len([]byte(in.PieceCID)) > 128 {
		return nil, apierr.Validation("bad_piece_cid", "piece_cid must be at most 128 bytes")
	}
	algo := 1
	if in.Algo != nil {
		algo = *in.Algo
	}
	if algo < 1 || algo > 255 {
		return nil, apierr.Validation("bad_algo", "algo must be in [1,255]")
	}
	if !hexPieceCIDPattern.MatchString(in.PieceCID) {
		return nil, apierr.Validation("bad_piece_cid", "piece_cid must be hex-encoded")
	}
	owner := common.HexToAddress(in.DatasetOwner)
	if in.DatasetOwner == "" {
		owner = common.HexToAddress(userAddress)
	}

	trackID, contentID, err := chain.ComputeTrackAndContentID(
		normText(in.Title), normText(in.Artist), normText(in.Album), owner)
	if err != nil {
		return nil, apierr.Internal("track_id_derivation_failed", err.Error())
	}

	if err := s.store.CompareAndSetStatus(ctx, jobID, job.Status, storage.StatusRegistering, nil); err != nil {
		if err == storage.ErrNoRowsAffected {
			current, lookupErr := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
			if lookupErr != nil {
				return nil, translateLookupErr(lookupErr)
			}
			if current.Status == storage.StatusRegistered && current.MegaethTxHash != nil {
				return &FinalizeResult{Job: current}, nil
			}
			return nil, apierr.Conflict("invalid_status", "job status changed concurrently: "+current.Status).WithJob(current)
		}
		return nil, apierr.Internal("storage_error", err.Error())
	}
	priorStatus := job.Status
	job.Status = storage.StatusRegistering

	result := &FinalizeResult{Job: job}

	alreadyRegistered, err := s.chain.IsRegistered(ctx, trackID)
	if err != nil {
		return s.finalizeFailed(ctx, job, priorStatus, "track_lookup_failed")
	}
	if !alreadyRegistered {
		if _, err := s.chain.RegisterTracksBatch(ctx, [][32]byte{trackID}, owner); err != nil {
			return s.finalizeFailed(ctx, job, priorStatus, "track_register_failed")
		}
		result.TrackRegistered = true
	}

	if in.PieceCID != "" {
		cidBytes := []byte(in.PieceCID)
		if _, err := s.chain.SetTrackCoverBatch(ctx, [][32]byte{trackID}, [][]byte{cidBytes}); err != nil {
			// Non-fatal per spec §4.1 "finalize": "optionally set a cover
			// reference (non-fatal)".
			job.ErrorMessage = truncateError(fmt.Errorf("set_track_cover failed: %w", err))
		}
	}

	content, err := s.chain.GetContent(ctx, contentID)
	if err != nil {
		return s.finalizeFailed(ctx, job, priorStatus, "content_lookup_failed")
	}
	var contentReceipt *chain.Receipt
	if content == nil || !content.Active {
		contentReceipt, err = s.chain.RegisterContentFor(ctx, contentID, trackID, owner, []byte(in.PieceCID), chain.ContentAlgo(algo))
		if err != nil {
			return s.finalizeFailed(ctx, job, priorStatus, "content_register_failed")
		}
		result.ContentRegistered = true
	}

	job.Status = storage.StatusRegistered
	if contentReceipt != nil {
		txHash := contentReceipt.TxHash.Hex()
		job.MegaethTxHash = &txHash
	}
	job.ErrorCode = ""
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	result.Job = job
	return result, nil
}

func (s *Service) finalizeFailed(ctx context.Context, job *storage.PublishJob, priorStatus, code string) (*FinalizeResult, error) {
	job.Status = priorStatus
	job.ErrorCode = code
	job.ErrorMessage = "finalize failed: " + code
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return nil, apierr.Upstream(code, job.ErrorMessage).WithJob(job)
}
