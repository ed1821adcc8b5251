package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

var metadataAllowedStatuses = map[string]bool{
	storage.StatusAnchored:    true,
	storage.StatusRegistering: true,
	storage.StatusRegistered:  true,
}

// MetadataInput is the JSON body of POST /publish/{jobId}/metadata.
type MetadataInput struct {
	IPMetadataJSON  json.RawMessage
	NFTMetadataJSON json.RawMessage
}

// metadataDoc is one of the two documents anchored by Metadata: the
// IP-level or NFT-level JSON blob.
type metadataDoc struct {
	kind       string
	uri        *string
	hash       *string
	anchoredID *string
}

// Metadata canonicalizes, uploads, posts, and probes the ip.json and
// nft.json documents in parallel (spec §4.1 "metadata").
func (s *Service) Metadata(ctx context.Context, jobID, userAddress string, in MetadataInput) (*storage.PublishJob, error) {
	job, err := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if !metadataAllowedStatuses[job.Status] {
		return nil, apierr.Conflict("invalid_status", "job status does not allow metadata: "+job.Status)
	}

	ipCanonical, err := canonicalJSON(in.IPMetadataJSON)
	if err != nil {
		return nil, apierr.Validation("bad_ip_metadata", err.Error())
	}
	nftCanonical, err := canonicalJSON(in.NFTMetadataJSON)
	if err != nil {
		return nil, apierr.Validation("bad_nft_metadata", err.Error())
	}
	if len(ipCanonical) > maxJSONBytes {
		return nil, apierr.Validation("ip_metadata_too_large", "ip metadata exceeds 256 KiB")
	}
	if len(nftCanonical) > maxJSONBytes {
		return nil, apierr.Validation("nft_metadata_too_large", "nft metadata exceeds 256 KiB")
	}

	if err := s.store.AcquireMetadataLock(ctx, jobID, []string{storage.MetadataStatusNone, storage.MetadataStatusFailed}); err != nil {
		if err == storage.ErrNoRowsAffected {
			current, lookupErr := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
			if lookupErr != nil {
				return nil, translateLookupErr(lookupErr)
			}
			return nil, apierr.Conflict("invalid_status", "metadata lock already held: "+current.MetadataStatus).WithJob(current)
		}
		return nil, apierr.Internal("storage_error", err.Error())
	}
	job.MetadataStatus = storage.MetadataStatusAnchoring

	var wg sync.WaitGroup
	var ipDoc, nftDoc metadataDoc
	var ipErr, nftErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		ipDoc, ipErr = s.anchorMetadataDoc(ctx, jobID, "ip", ipCanonical)
	}()
	go func() {
		defer wg.Done()
		nftDoc, nftErr = s.anchorMetadataDoc(ctx, jobID, "nft", nftCanonical)
	}()
	wg.Wait()

	if ipErr != nil || nftErr != nil {
		job.MetadataStatus = storage.MetadataStatusFailed
		job.MetadataError = truncateError(firstNonNil(ipErr, nftErr))
		if err := s.store.SavePublishJob(ctx, job); err != nil {
			return nil, apierr.Internal("storage_error", err.Error())
		}
		return nil, apierr.Upstream("metadata_failed", job.MetadataError).WithJob(job)
	}

	job.IPMetadataURI = ipDoc.uri
	job.IPMetadataHash = ipDoc.hash
	job.IPMetadataAnchoredID = ipDoc.anchoredID
	job.NFTMetadataURI = nftDoc.uri
	job.NFTMetadataHash = nftDoc.hash
	job.NFTMetadataAnchoredID = nftDoc.anchoredID
	job.MetadataStatus = storage.MetadataStatusAnchored
	job.MetadataError = ""
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return job, nil
}

func (s *Service) anchorMetadataDoc(ctx context.Context, jobID, kind string, body []byte) (metadataDoc, error) {
	staged, err := s.uploader.Stage(ctx, kind+".json", "application/json", body, []uploader.Tag{
		{Key: "kind", Value: "publish_metadata_" + kind}, {Key: "job_id", Value: jobID},
	})
	if err != nil {
		return metadataDoc{}, fmt.Errorf("%s metadata stage: %w", kind, err)
	}
	if err := s.uploader.Post(ctx, staged.ID); err != nil {
		return metadataDoc{}, fmt.Errorf("%s metadata post: %w", kind, err)
	}
	s.uploader.Probe(ctx, staged.GatewayURL)
	hash := "0x" + sha256Hex(body)
	return metadataDoc{kind: kind, uri: &staged.GatewayURL, hash: &hash, anchoredID: &staged.ID}, nil
}

// canonicalJSON rejects non-object top-level values and re-marshals with
// sorted-by-construction key order (encoding/json already preserves
// struct/map iteration deterministically once decoded into a map).
func canonicalJSON(raw json.RawMessage) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("metadata body is required")
	}
	var v map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("metadata must be a JSON object: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("metadata could not be re-serialized: %w", err)
	}
	return out, nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 1024 {
		msg = msg[:1024]
	}
	return msg
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
