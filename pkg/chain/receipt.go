package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Receipt is the subset of a mined transaction's receipt the publish
// pipeline persists and logs (spec §3.1 anchor/registration facets).
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Status      uint64
}

func newReceipt(r *types.Receipt) *Receipt {
	if r == nil {
		return nil
	}
	return &Receipt{
		TxHash:      r.TxHash,
		BlockNumber: r.BlockNumber.Uint64(),
		GasUsed:     r.GasUsed,
		Status:      r.Status,
	}
}

// tokenIDFromTransfer scans a receipt's logs for the first standard
// ERC-721 Transfer(address,address,uint256) event emitted by
// `contract`, and returns its indexed tokenId argument. This is how
// register extracts the minted token id (spec §4.1 "register": "extracts
// the minted token ID by scanning receipt logs for the ERC-721
// Transfer(0x0, recipient, tokenId) event").
func tokenIDFromTransfer(receipt *types.Receipt, contract common.Address) (*big.Int, error) {
	if receipt == nil {
		return nil, fmt.Errorf("chain: nil receipt")
	}
	transferTopic := erc721ABI().Events["Transfer"].ID
	for _, lg := range receipt.Logs {
		if lg.Address != contract {
			continue
		}
		if len(lg.Topics) != 4 || lg.Topics[0] != transferTopic {
			continue
		}
		if lg.Topics[1] != (common.Hash{}) {
			// Not a mint: the indexed `from` isn't the zero address.
			continue
		}
		tokenID := new(big.Int).SetBytes(lg.Topics[3].Bytes())
		return tokenID, nil
	}
	return nil, fmt.Errorf("chain: no mint Transfer event found in receipt %s for contract %s", receipt.TxHash, contract)
}
