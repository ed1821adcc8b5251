package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	typeString, _  = abi.NewType("string", "", nil)
	typeBytes32, _ = abi.NewType("bytes32", "", nil)
	typeUint8, _   = abi.NewType("uint8", "", nil)
	typeAddress, _ = abi.NewType("address", "", nil)
)

// MetaTrackKind is the track "kind" tag finalize mints every registered
// track under (spec §4.1 "finalize": "the `3` is the meta-track kind").
const MetaTrackKind uint8 = 3

// ComputeTrackAndContentID derives finalize's two on-chain identifiers
// from normalized title/artist/album and the owning address (spec §4.1
// "finalize"):
//
//	payload    = keccak256(abi.encode(["string","string","string"], [title, artist, album]))
//	trackID    = keccak256(abi.encode(["uint8","bytes32"], [3, payload]))
//	contentID  = keccak256(abi.encode(["bytes32","address"], [trackID, owner]))
func ComputeTrackAndContentID(normTitle, normArtist, normAlbum string, owner common.Address) (trackID, contentID [32]byte, err error) {
	payloadArgs := abi.Arguments{{Type: typeString}, {Type: typeString}, {Type: typeString}}
	payloadEncoded, err := payloadArgs.Pack(normTitle, normArtist, normAlbum)
	if err != nil {
		return trackID, contentID, fmt.Errorf("chain: couldn't encode title/artist/album: %w", err)
	}
	var payload [32]byte
	copy(payload[:], crypto.Keccak256(payloadEncoded))

	trackArgs := abi.Arguments{{Type: typeUint8}, {Type: typeBytes32}}
	trackEncoded, err := trackArgs.Pack(MetaTrackKind, payload)
	if err != nil {
		return trackID, contentID, fmt.Errorf("chain: couldn't encode track id: %w", err)
	}
	copy(trackID[:], crypto.Keccak256(trackEncoded))

	contentArgs := abi.Arguments{{Type: typeBytes32}, {Type: typeAddress}}
	contentEncoded, err := contentArgs.Pack(trackID, owner)
	if err != nil {
		return trackID, contentID, fmt.Errorf("chain: couldn't encode content id: %w", err)
	}
	copy(contentID[:], crypto.Keccak256(contentEncoded))

	return trackID, contentID, nil
}
