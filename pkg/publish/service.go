// Package publish implements the Music Publish Pipeline state machine
// (spec §4.1): start, stage_artifacts, preflight, anchor, metadata,
// register, and finalize, each guarded by a conditional status update
// against the persisted job row.
package publish

import (
	"time"

	"github.com/originform/publishctl/pkg/chain"
	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

const (
	maxUploadBytes  = 50 * 1024 * 1024  // 50 MiB
	maxCoverBytes   = 10 * 1024 * 1024  // 10 MiB
	maxLyricsBytes  = 256 * 1024        // 256 KiB
	maxJSONBytes    = 256 * 1024        // 256 KiB
	maxTitleBytes   = 128
	rollingWindow   = 24 * time.Hour
	rollingMaxCount = 20
	rollingMaxBytes = 500 * 1024 * 1024 // 500 MiB
)

// Service wires the publish state machine to its collaborators. Every
// operation is a single HTTP verb's worth of work scoped to one job.
type Service struct {
	store    *storage.Store
	uploader *uploader.Client
	chain    *chain.Adapter
}

func NewService(store *storage.Store, up *uploader.Client, adapter *chain.Adapter) *Service {
	return &Service{store: store, uploader: up, chain: adapter}
}
