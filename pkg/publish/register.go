package publish

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/chain"
	"github.com/originform/publishctl/pkg/storage"
)

// RegisterInput is the JSON body of POST /publish/{jobId}/register
// (spec §6).
type RegisterInput struct {
	Recipient         string
	IPMetadataURI     string
	IPMetadataHash    string
	NFTMetadataURI    string
	NFTMetadataHash   string
	LicenseTermsID    string
	ParentIPIDs       []string
	LicenseTermsIDs   []string
	LicenseTemplate   string
	RoyaltyContext    string
	MaxMintingFee     string
	MaxRTS            uint32
	MaxRevenueShare   uint32
	AllowDuplicates   bool
}

var hexAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
var hexBytesPattern = regexp.MustCompile(`^0x[0-9a-fA-F]*$`)
var nonNegativeIntPattern = regexp.MustCompile(`^[0-9]+$`)

// Register calls the chain adapter's mint-and-register workflow: plain
// attach-PIL-terms for an original, make-derivative for a derivative or
// cover (spec §4.1 "register").
func (s *Service) Register(ctx context.Context, jobID, userAddress string, in RegisterInput) (*storage.PublishJob, error) {
	job, err := s.store.GetPublishJobForUser(ctx, jobID, userAddress)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if job.Status != storage.StatusAnchored {
		return nil, apierr.Conflict("invalid_status", "job status does not allow register: "+job.Status)
	}
	if s.chain == nil {
		return nil, apierr.Validation("config_missing", "chain adapter is not configured")
	}
	if !hexAddressPattern.MatchString(in.Recipient) {
		return nil, apierr.Validation("bad_recipient", "recipient must be a well-formed address")
	}
	recipient := common.HexToAddress(in.Recipient)

	ipMeta, verr := buildIPMetadata(in)
	if verr != nil {
		return nil, verr
	}

	if err := s.store.CompareAndSetStatus(ctx, jobID, storage.StatusAnchored, storage.StatusRegistering, nil); err != nil {
		if err == storage.ErrNoRowsAffected {
			return nil, conflictCurrentStatus(ctx, s, jobID, userAddress)
		}
		return nil, apierr.Internal("storage_error", err.Error())
	}
	job.Status = storage.StatusRegistering

	var result *chain.MintResult
	var receipt *chain.Receipt
	var termsIDs []string

	switch job.PublishType {
	case storage.PublishTypeOriginal:
		termsID, ok := new(big.Int).SetString(orDefault(in.LicenseTermsID, "0"), 10)
		if !ok {
			return s.registerFailed(ctx, job, "bad_license_terms_id")
		}
		result, receipt, err = s.chain.AttachPILTerms(ctx, recipient, *ipMeta, termsID)
	case storage.PublishTypeDerivative, storage.PublishTypeCover:
		parents, licTerms, rerr := buildDerivativeArgs(in)
		if rerr != nil {
			return nil, rerr
		}
		if !hexAddressPattern.MatchString(in.LicenseTemplate) {
			return s.registerFailed(ctx, job, "bad_license_template")
		}
		if !hexBytesPattern.MatchString(in.RoyaltyContext) {
			return s.registerFailed(ctx, job, "bad_royalty_context")
		}
		if !nonNegativeIntPattern.MatchString(orDefault(in.MaxMintingFee, "0")) {
			return s.registerFailed(ctx, job, "bad_max_minting_fee")
		}
		maxFee, _ := new(big.Int).SetString(orDefault(in.MaxMintingFee, "0"), 10)
		result, receipt, err = s.chain.MakeDerivative(ctx, recipient, parents, licTerms,
			common.HexToAddress(in.LicenseTemplate), maxFee, in.MaxRTS, in.MaxRevenueShare)
	default:
		return s.registerFailed(ctx, job, "bad_publish_type")
	}
	if err != nil {
		return s.registerFailed(ctx, job, "register_failed")
	}

	attached, err := s.chain.AttachedLicenseTerms(ctx, result.IPID)
	if err == nil {
		for _, t := range attached {
			termsIDs = append(termsIDs, t.TermsID.String())
		}
	}
	if len(termsIDs) == 0 {
		termsIDs = []string{}
	}

	ipID := strings.ToLower(result.IPID.Hex())
	tokenID := result.TokenID.String()
	txHash := receipt.TxHash.Hex()
	blockNumber := fmt.Sprintf("%d", receipt.BlockNumber)

	job.StoryTxHash = &txHash
	job.StoryIPID = &ipID
	job.StoryTokenID = &tokenID
	job.StoryLicenseTermsIDsJSON = encodeStringArray(termsIDs)
	job.StoryBlockNumber = &blockNumber
	job.Status = storage.StatusRegistered
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return job, nil
}

func (s *Service) registerFailed(ctx context.Context, job *storage.PublishJob, code string) (*storage.PublishJob, error) {
	job.Status = storage.StatusAnchored
	job.ErrorCode = code
	job.ErrorMessage = "register failed: " + code
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, apierr.Internal("storage_error", err.Error())
	}
	return nil, apierr.Upstream(code, job.ErrorMessage).WithJob(job)
}

func buildIPMetadata(in RegisterInput) (*chain.IPMetadata, error) {
	ipHash, err := parseHash32(in.IPMetadataHash)
	if err != nil {
		return nil, apierr.Validation("bad_ip_metadata_hash", err.Error())
	}
	nftHash, err := parseHash32(in.NFTMetadataHash)
	if err != nil {
		return nil, apierr.Validation("bad_nft_metadata_hash", err.Error())
	}
	return &chain.IPMetadata{
		IPMetadataURI:   in.IPMetadataURI,
		IPMetadataHash:  ipHash,
		NFTMetadataURI:  in.NFTMetadataURI,
		NFTMetadataHash: nftHash,
	}, nil
}

func parseHash32(s string) ([32]byte, error) {
	var out [32]byte
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return out, fmt.Errorf("hash must be 32 bytes hex-encoded")
	}
	for i := 0; i < 32; i++ {
		var b byte
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &b); err != nil {
			return out, fmt.Errorf("hash is not valid hex: %w", err)
		}
		out[i] = b
	}
	return out, nil
}

func buildDerivativeArgs(in RegisterInput) ([]common.Address, []*big.Int, error) {
	if len(in.ParentIPIDs) == 0 || len(in.LicenseTermsIDs) == 0 || len(in.ParentIPIDs) != len(in.LicenseTermsIDs) {
		return nil, nil, apierr.Validation("invalid_parent_terms", "parent_ip_ids and license_terms_ids must be equal-length and non-empty")
	}
	parents := make([]common.Address, len(in.ParentIPIDs))
	terms := make([]*big.Int, len(in.LicenseTermsIDs))
	for i, p := range in.ParentIPIDs {
		if !hexAddressPattern.MatchString(p) {
			return nil, nil, apierr.Validation("bad_parent_ip_id", "parent_ip_ids["+fmt.Sprint(i)+"] is not a well-formed address")
		}
		parents[i] = common.HexToAddress(p)
		termID, ok := new(big.Int).SetString(in.LicenseTermsIDs[i], 10)
		if !ok {
			return nil, nil, apierr.Validation("bad_license_terms_id", "license_terms_ids["+fmt.Sprint(i)+"] is not a non-negative integer")
		}
		terms[i] = termID
	}
	return parents, terms, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
