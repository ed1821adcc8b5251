package publish

import (
	"context"

	"github.com/originform/publishctl/pkg/storage"
)

// Get reads a job scoped to its owning address (spec §6 "GET
// /publish/{jobId}").
func (s *Service) Get(ctx context.Context, jobID, userAddress string) (*storage.PublishJob, error) {
	job, err := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	return job, nil
}
