package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// IPMetadata mirrors the workflow contracts' ipMetadata tuple (spec §6
// register: "ipMetadataURI/Hash, nftMetadataURI/Hash").
type IPMetadata struct {
	IPMetadataURI   string
	IPMetadataHash  [32]byte
	NFTMetadataURI  string
	NFTMetadataHash [32]byte
}

// MintResult is the (ipId, tokenId) pair register persists once a mint
// workflow lands: tokenId comes off the collection's Transfer log,
// ipId is then resolved via the asset registry's deterministic ipId()
// view (spec §4.1 "register").
type MintResult struct {
	IPID    common.Address
	TokenID *big.Int
}

func (a *Adapter) resolveMintResult(ctx context.Context, raw *types.Receipt) (*MintResult, error) {
	tokenID, err := tokenIDFromTransfer(raw, a.cfg.CollectionAddress)
	if err != nil {
		return nil, err
	}
	var ipID common.Address
	if err := a.call(ctx, a.cfg.AssetRegistry, abiFor("assetRegistry"), "ipId", &ipID,
		big.NewInt(a.cfg.ChainID), a.cfg.CollectionAddress, tokenID); err != nil {
		return nil, err
	}
	return &MintResult{IPID: ipID, TokenID: tokenID}, nil
}

// AttachPILTerms runs mintAndRegisterIpAndAttachPILTerms: mints the SPG
// collection NFT, registers it as an IP, and attaches a Programmable IP
// License in one transaction (spec §4.1 "register", original license
// path).
func (a *Adapter) AttachPILTerms(ctx context.Context, recipient common.Address, meta IPMetadata, licenseTermsID *big.Int) (*MintResult, *Receipt, error) {
	abiDef := abiFor("licenseAttach")
	data, err := abiDef.Pack("mintAndRegisterIpAndAttachPILTerms",
		a.cfg.CollectionAddress,
		recipient,
		struct {
			IPMetadataURI   string
			IPMetadataHash  [32]byte
			NFTMetadataURI  string
			NFTMetadataHash [32]byte
		}{meta.IPMetadataURI, meta.IPMetadataHash, meta.NFTMetadataURI, meta.NFTMetadataHash},
		licenseTermsID,
		[]byte{},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: couldn't pack mintAndRegisterIpAndAttachPILTerms: %w", err)
	}
	// No recheck closure: the minted tokenId is only known from this
	// call's own receipt, so there is no pre-mint identity to requery on
	// timeout. A timeout surfaces as an error, on which Register rolls the
	// job back to anchored.
	raw, err := a.sendAndWait(ctx, a.cfg.LicenseAttachWorkflow, data, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	result, err := a.resolveMintResult(ctx, raw)
	if err != nil {
		return nil, nil, err
	}
	return result, newReceipt(raw), nil
}

// MakeDerivative runs mintAndRegisterIpAndMakeDerivative: mints and
// registers an IP as a derivative of one or more parent IPs under the
// given license terms (spec §4.1 "register", derivative path).
func (a *Adapter) MakeDerivative(ctx context.Context, recipient common.Address, parentIPIDs []common.Address, licenseTermsIDs []*big.Int, licenseTemplate common.Address, maxMintingFee *big.Int, maxRTS, maxRevenueShare uint32) (*MintResult, *Receipt, error) {
	abiDef := abiFor("derivativeWorkflow")
	data, err := abiDef.Pack("mintAndRegisterIpAndMakeDerivative",
		a.cfg.CollectionAddress,
		recipient,
		parentIPIDs,
		licenseTermsIDs,
		licenseTemplate,
		[]byte{},
		valueOrZero(maxMintingFee),
		maxRTS,
		maxRevenueShare,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: couldn't pack mintAndRegisterIpAndMakeDerivative: %w", err)
	}
	// Same reasoning as AttachPILTerms above: no pre-mint identity to recheck.
	raw, err := a.sendAndWait(ctx, a.cfg.DerivativeWorkflow, data, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	result, err := a.resolveMintResult(ctx, raw)
	if err != nil {
		return nil, nil, err
	}
	return result, newReceipt(raw), nil
}

// AttachedLicenseTerms returns every (template, termsId) pair currently
// attached to ipID, used by register to record the terms IDs of a newly
// minted IP (spec §4.1 "register").
func (a *Adapter) AttachedLicenseTerms(ctx context.Context, ipID common.Address) ([]LicenseTerms, error) {
	var count *big.Int
	if err := a.call(ctx, a.cfg.LicenseRegistry, abiFor("licenseRegistry"), "getAttachedLicenseTermsCount", &count, ipID); err != nil {
		return nil, err
	}
	out := make([]LicenseTerms, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		var terms struct {
			LicenseTemplate common.Address
			LicenseTermsId  *big.Int
		}
		if err := a.call(ctx, a.cfg.LicenseRegistry, abiFor("licenseRegistry"), "getAttachedLicenseTerms", &terms, ipID, big.NewInt(i)); err != nil {
			return nil, err
		}
		out = append(out, LicenseTerms{Template: terms.LicenseTemplate, TermsID: terms.LicenseTermsId})
	}
	return out, nil
}

type LicenseTerms struct {
	Template common.Address
	TermsID  *big.Int
}
