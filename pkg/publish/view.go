package publish

import (
	"encoding/json"
	"time"

	"github.com/originform/publishctl/pkg/storage"
)

// View is the wire shape of a publish job returned as the "job" field
// in every §6 response: flat camelCase fields mirroring the §3.1 facets,
// plus the megaethTxHash/tempoTxHash alias documented in SPEC_FULL.md §9.
type View struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserAddress    string  `json:"userAddress"`
	IdempotencyKey *string `json:"idempotencyKey,omitempty"`

	FileName    string  `json:"fileName"`
	ContentType string  `json:"contentType"`
	FileSize    int64   `json:"fileSize"`
	AudioSha256 *string `json:"audioSha256,omitempty"`
	Fingerprint *string `json:"fingerprint,omitempty"`
	DurationS   *int    `json:"durationS,omitempty"`
	StagedID    *string `json:"stagedId,omitempty"`
	StagedURL   *string `json:"stagedUrl,omitempty"`

	CoverID          *string `json:"coverId,omitempty"`
	CoverURL         *string `json:"coverUrl,omitempty"`
	CoverContentType *string `json:"coverContentType,omitempty"`
	CoverSize        *int64  `json:"coverSize,omitempty"`

	LyricsID     *string `json:"lyricsId,omitempty"`
	LyricsURL    *string `json:"lyricsUrl,omitempty"`
	LyricsSha256 *string `json:"lyricsSha256,omitempty"`
	LyricsSize   *int64  `json:"lyricsSize,omitempty"`

	PublishType         string          `json:"publishType"`
	PolicyDecision      string          `json:"policyDecision,omitempty"`
	ReasonCode          string          `json:"reasonCode,omitempty"`
	ReasonText          string          `json:"reasonText,omitempty"`
	ParentIPIDs         json.RawMessage `json:"parentIpIds,omitempty"`
	LicenseTermsIDs     json.RawMessage `json:"licenseTermsIds,omitempty"`

	AnchoredDataItemID *string `json:"anchoredDataItemId,omitempty"`
	ArweaveRef         *string `json:"arweaveRef,omitempty"`
	ArweaveURL         *string `json:"arweaveUrl,omitempty"`
	ArweaveAvailable   bool    `json:"arweaveAvailable"`

	MetadataStatus       string  `json:"metadataStatus"`
	MetadataError        string  `json:"metadataError,omitempty"`
	IPMetadataURI        *string `json:"ipMetadataUri,omitempty"`
	IPMetadataHash       *string `json:"ipMetadataHash,omitempty"`
	IPMetadataAnchoredID *string `json:"ipMetadataAnchoredId,omitempty"`
	NFTMetadataURI        *string `json:"nftMetadataUri,omitempty"`
	NFTMetadataHash       *string `json:"nftMetadataHash,omitempty"`
	NFTMetadataAnchoredID *string `json:"nftMetadataAnchoredId,omitempty"`

	StoryTxHash              *string         `json:"storyTxHash,omitempty"`
	StoryIPID                *string         `json:"storyIpId,omitempty"`
	StoryTokenID             *string         `json:"storyTokenId,omitempty"`
	StoryLicenseTermsIDs     json.RawMessage `json:"storyLicenseTermsIds,omitempty"`
	StoryBlockNumber         *string         `json:"storyBlockNumber,omitempty"`
	MegaethTxHash            *string         `json:"megaethTxHash,omitempty"`
	// TempoTxHash is a back-compat alias for MegaethTxHash; see
	// SPEC_FULL.md §9 on the storage field's naming history.
	TempoTxHash *string `json:"tempoTxHash,omitempty"`

	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// NewView projects a storage row into its wire shape.
func NewView(job *storage.PublishJob) *View {
	if job == nil {
		return nil
	}
	v := &View{
		JobID:     job.JobID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,

		UserAddress:    job.UserAddress,
		IdempotencyKey: job.IdempotencyKey,

		FileName:    job.FileName,
		ContentType: job.ContentType,
		FileSize:    job.FileSize,
		AudioSha256: job.AudioSha256,
		Fingerprint: job.Fingerprint,
		DurationS:   job.DurationS,
		StagedID:    job.StagedID,
		StagedURL:   job.StagedURL,

		CoverID:          job.CoverID,
		CoverURL:         job.CoverURL,
		CoverContentType: job.CoverContentType,
		CoverSize:        job.CoverSize,

		LyricsID:     job.LyricsID,
		LyricsURL:    job.LyricsURL,
		LyricsSha256: job.LyricsSha256,
		LyricsSize:   job.LyricsSize,

		PublishType:     job.PublishType,
		PolicyDecision:  job.PolicyDecision,
		ReasonCode:      job.ReasonCode,
		ReasonText:      job.ReasonText,
		ParentIPIDs:     json.RawMessage(job.ParentIPIDsJSON),
		LicenseTermsIDs: json.RawMessage(job.LicenseTermsIDsJSON),

		AnchoredDataItemID: job.AnchoredDataItemID,
		ArweaveRef:         job.ArweaveRef,
		ArweaveURL:         job.ArweaveURL,
		ArweaveAvailable:   job.ArweaveAvailable,

		MetadataStatus:        job.MetadataStatus,
		MetadataError:         job.MetadataError,
		IPMetadataURI:         job.IPMetadataURI,
		IPMetadataHash:        job.IPMetadataHash,
		IPMetadataAnchoredID:  job.IPMetadataAnchoredID,
		NFTMetadataURI:        job.NFTMetadataURI,
		NFTMetadataHash:       job.NFTMetadataHash,
		NFTMetadataAnchoredID: job.NFTMetadataAnchoredID,

		StoryTxHash:          job.StoryTxHash,
		StoryIPID:            job.StoryIPID,
		StoryTokenID:         job.StoryTokenID,
		StoryLicenseTermsIDs: json.RawMessage(job.StoryLicenseTermsIDsJSON),
		StoryBlockNumber:     job.StoryBlockNumber,
		MegaethTxHash:        job.MegaethTxHash,
		TempoTxHash:          job.MegaethTxHash,

		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
	}
	return v
}
