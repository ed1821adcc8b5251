package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// RegisterTracksBatch registers a batch of precomputed track ids to
// owner in one transaction, the finalize step's bulk track-registration
// call (spec §4.1 "finalize"). Each id is the 32-byte value finalize
// derives via keccak256(abi.encode(["uint8","bytes32"], [3, payload])),
// not a hash computed by this package.
func (a *Adapter) RegisterTracksBatch(ctx context.Context, trackIDs [][32]byte, owner common.Address) (*Receipt, error) {
	owners := make([]common.Address, len(trackIDs))
	for i := range trackIDs {
		owners[i] = owner
	}
	abiDef := abiFor("trackRegistry")
	data, err := abiDef.Pack("registerTracksBatch", trackIDs, owners)
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't pack registerTracksBatch: %w", err)
	}
	recheck := func(rctx context.Context) (bool, error) {
		if len(trackIDs) == 0 {
			return false, nil
		}
		return a.IsRegistered(rctx, trackIDs[0])
	}
	raw, err := a.sendAndWait(ctx, a.cfg.TrackRegistry, data, nil, recheck)
	if err != nil {
		return nil, err
	}
	return newReceipt(raw), nil
}

// SetTrackCoverBatch attaches cover-art content ids to an already
// registered batch of tracks (spec §4.1 "finalize").
func (a *Adapter) SetTrackCoverBatch(ctx context.Context, trackIDs [][32]byte, coverCIDs [][]byte) (*Receipt, error) {
	if len(trackIDs) != len(coverCIDs) {
		return nil, fmt.Errorf("chain: trackIds and coverCIDs length mismatch (%d vs %d)", len(trackIDs), len(coverCIDs))
	}
	abiDef := abiFor("trackRegistry")
	data, err := abiDef.Pack("setTrackCoverBatch", trackIDs, coverCIDs)
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't pack setTrackCoverBatch: %w", err)
	}
	raw, err := a.sendAndWait(ctx, a.cfg.TrackRegistry, data, nil, nil)
	if err != nil {
		return nil, err
	}
	return newReceipt(raw), nil
}

// TrackState is what getTrack reports for a given track id.
type TrackState struct {
	Owner      common.Address
	Registered bool
}

func (a *Adapter) GetTrack(ctx context.Context, trackID [32]byte) (*TrackState, error) {
	var out struct {
		Owner      common.Address
		Registered bool
	}
	if err := a.call(ctx, a.cfg.TrackRegistry, abiFor("trackRegistry"), "getTrack", &out, trackID); err != nil {
		return nil, err
	}
	return &TrackState{Owner: out.Owner, Registered: out.Registered}, nil
}

// IsRegistered is the cheap boolean check finalize uses before retrying
// a track registration call, so a partially-applied batch isn't
// resubmitted for tracks that already landed (spec §4.1 "finalize",
// §9 "Chain work is non-transactional").
func (a *Adapter) IsRegistered(ctx context.Context, trackID [32]byte) (bool, error) {
	var registered bool
	if err := a.call(ctx, a.cfg.TrackRegistry, abiFor("trackRegistry"), "isRegistered", &registered, trackID); err != nil {
		return false, err
	}
	return registered, nil
}

// ContentAlgo identifies the hashing/addressing scheme a piece of
// content was registered under (spec §3.1 "algo").
type ContentAlgo uint8

const (
	ContentAlgoSHA256 ContentAlgo = iota
	ContentAlgoCID
)

// RegisterContentFor registers the content entry contentID (owner, piece
// CID and algo) under trackID in the content registry, the last on-chain
// step of finalize (spec §4.1 "finalize").
func (a *Adapter) RegisterContentFor(ctx context.Context, contentID, trackID [32]byte, owner common.Address, pieceCID []byte, algo ContentAlgo) (*Receipt, error) {
	abiDef := abiFor("contentRegistry")
	data, err := abiDef.Pack("registerContentFor", contentID, trackID, owner, pieceCID, uint8(algo))
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't pack registerContentFor: %w", err)
	}
	recheck := func(rctx context.Context) (bool, error) {
		state, err := a.GetContent(rctx, contentID)
		if err != nil {
			return false, err
		}
		return state.Active, nil
	}
	raw, err := a.sendAndWait(ctx, a.cfg.ContentRegistry, data, nil, recheck)
	if err != nil {
		return nil, err
	}
	return newReceipt(raw), nil
}

type ContentState struct {
	TrackID [32]byte
	Active  bool
}

func (a *Adapter) GetContent(ctx context.Context, contentID [32]byte) (*ContentState, error) {
	var out struct {
		TrackId [32]byte
		Active  bool
	}
	if err := a.call(ctx, a.cfg.ContentRegistry, abiFor("contentRegistry"), "getContent", &out, contentID); err != nil {
		return nil, err
	}
	return &ContentState{TrackID: out.TrackId, Active: out.Active}, nil
}
