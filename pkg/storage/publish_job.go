package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Publish job statuses. The zero value is intentionally not a valid
// status so a forgotten assignment surfaces instead of silently
// behaving like "staged".
const (
	StatusStaged       = "staged"
	StatusChecking     = "checking"
	StatusPolicyPassed = "policy_passed"
	StatusManualReview = "manual_review"
	StatusRejected     = "rejected"
	StatusAnchoring    = "anchoring"
	StatusAnchored     = "anchored"
	StatusRegistering  = "registering"
	StatusRegistered   = "registered"
)

const (
	PublishTypeOriginal   = "original"
	PublishTypeDerivative = "derivative"
	PublishTypeCover      = "cover"
)

const (
	PolicyPass         = "pass"
	PolicyPending      = "pending"
	PolicyManualReview = "manual_review"
	PolicyReject       = "reject"
)

const (
	MetadataStatusNone      = "none"
	MetadataStatusAnchoring = "anchoring"
	MetadataStatusAnchored  = "anchored"
	MetadataStatusFailed    = "failed"
)

// PublishJob is the music_publish_jobs row described in spec §3.1. Every
// facet is flattened into the same table; optional facets are pointer or
// zero-value fields rather than a joined table, matching the teacher's
// single-table-per-entity style.
type PublishJob struct {
	JobID     string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserAddress    string  `gorm:"index;not null;default:''"`
	IdempotencyKey *string `gorm:"index"`

	// Upload facet
	FileName     string  `gorm:"not null;default:''"`
	ContentType  string  `gorm:"not null;default:''"`
	FileSize     int64   `gorm:"not null;default:0"`
	AudioSha256  *string
	Fingerprint  *string
	DurationS    *int
	StagedID     *string
	StagedURL    *string
	StagedPayload []byte `gorm:"type:blob"`

	// Cover artifact facet
	CoverID          *string
	CoverURL         *string
	CoverContentType *string
	CoverSize        *int64

	// Lyrics artifact facet
	LyricsID     *string
	LyricsURL    *string
	LyricsSha256 *string
	LyricsSize   *int64

	// Policy facet
	PublishType           string `gorm:"not null;default:'original'"`
	PolicyDecision         string `gorm:"not null;default:''"`
	ReasonCode             string `gorm:"not null;default:''"`
	ReasonText             string `gorm:"not null;default:''"`
	ParentIPIDsJSON        string `gorm:"not null;default:'[]'"`
	LicenseTermsIDsJSON    string `gorm:"not null;default:'[]'"`

	// Anchor facet
	AnchoredDataItemID *string
	ArweaveRef         *string
	ArweaveURL         *string
	ArweaveAvailable   bool `gorm:"not null;default:false"`

	// Metadata facet
	MetadataStatus       string `gorm:"not null;default:'none'"`
	MetadataError        string `gorm:"not null;default:''"`
	IPMetadataURI        *string
	IPMetadataHash       *string
	IPMetadataAnchoredID *string
	NFTMetadataURI        *string
	NFTMetadataHash       *string
	NFTMetadataAnchoredID *string

	// Registration facet
	StoryTxHash              *string
	StoryIPID                *string
	StoryTokenID             *string
	StoryLicenseTermsIDsJSON string  `gorm:"not null;default:'[]'"`
	StoryBlockNumber         *string
	// MegaethTxHash is the secondary finalize transaction hash. It is
	// exposed in JSON under both "megaethTxHash" (canonical) and
	// "tempoTxHash" (back-compat alias) — see SPEC_FULL.md §9.
	MegaethTxHash *string

	// Error facet
	ErrorCode    string `gorm:"not null;default:''"`
	ErrorMessage string `gorm:"not null;default:''"`

	Status string `gorm:"not null;default:'staged';index"`
}

func (s *Store) GetPublishJob(ctx context.Context, jobID string) (*PublishJob, error) {
	var v PublishJob
	if err := s.db.WithContext(ctx).First(&v, "job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get publish job %s: %w", jobID, err)
	}
	return &v, nil
}

// GetPublishJobForUser reads a job scoped to its owning address, the
// shape every handler in §4.1 uses ("{job_id} scoped to user_address").
func (s *Store) GetPublishJobForUser(ctx context.Context, jobID, userAddress string) (*PublishJob, error) {
	var v PublishJob
	q := s.db.WithContext(ctx).First(&v, "job_id = ? AND user_address = ?", jobID, userAddress)
	if err := q.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get publish job %s: %w", jobID, err)
	}
	return &v, nil
}

func (s *Store) CreatePublishJob(ctx context.Context, v *PublishJob) error {
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("storage: failed to create publish job %s: %w", v.JobID, err)
	}
	return nil
}

func (s *Store) SavePublishJob(ctx context.Context, v *PublishJob) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to save publish job %s: %w", v.JobID, err)
	}
	return nil
}

// CompareAndSetStatus performs the conditional "update where status =
// expected" transition described in spec §4.1/§9. It asserts exactly one
// row was affected; any other count (0, because a racer already won, or
// in principle >1) is reported so the caller can re-read and return 409.
func (s *Store) CompareAndSetStatus(ctx context.Context, jobID, expected, next string, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": next}
	for k, v := range extra {
		updates[k] = v
	}
	tx := s.db.WithContext(ctx).Model(&PublishJob{}).
		Where("job_id = ? AND status = ?", jobID, expected).
		Updates(updates)
	if tx.Error != nil {
		return fmt.Errorf("storage: failed to transition publish job %s %s->%s: %w", jobID, expected, next, tx.Error)
	}
	if tx.RowsAffected != 1 {
		return ErrNoRowsAffected
	}
	return nil
}

// AcquireMetadataLock advances metadata_status from one of fromStatuses
// to "anchoring", asserting exactly one row affected, the same
// conditional-update primitive as CompareAndSetStatus but scoped to the
// metadata facet so a concurrent metadata call loses instead of racing.
func (s *Store) AcquireMetadataLock(ctx context.Context, jobID string, fromStatuses []string) error {
	tx := s.db.WithContext(ctx).Model(&PublishJob{}).
		Where("job_id = ? AND metadata_status IN (?)", jobID, fromStatuses).
		Updates(map[string]interface{}{"metadata_status": MetadataStatusAnchoring})
	if tx.Error != nil {
		return fmt.Errorf("storage: failed to acquire metadata lock for %s: %w", jobID, tx.Error)
	}
	if tx.RowsAffected != 1 {
		return ErrNoRowsAffected
	}
	return nil
}

// FindDuplicateAudio looks for other jobs sharing audioSha256 that have
// already progressed past preflight, per the §4.1 duplicate-scan step.
func (s *Store) FindDuplicateAudio(ctx context.Context, audioSha256, excludeJobID string) ([]*PublishJob, error) {
	statuses := []string{StatusPolicyPassed, StatusAnchoring, StatusAnchored, StatusRegistering, StatusRegistered}
	var vs []*PublishJob
	q := s.db.WithContext(ctx).
		Where("audio_sha256 = ? AND job_id != ? AND status IN (?)", audioSha256, excludeJobID, statuses)
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to scan duplicate audio: %w", err)
	}
	return vs, nil
}

// FindByIdempotencyKey returns the job previously created for this user
// and idempotency key, if any.
func (s *Store) FindByIdempotencyKey(ctx context.Context, userAddress, key string) (*PublishJob, error) {
	var v PublishJob
	q := s.db.WithContext(ctx).First(&v, "user_address = ? AND idempotency_key = ?", userAddress, key)
	if err := q.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to look up idempotency key: %w", err)
	}
	return &v, nil
}

// RollingWindowUsage sums the publish count and byte total for a user
// over the trailing window, backing the §4.1 rate limit.
func (s *Store) RollingWindowUsage(ctx context.Context, userAddress string, since time.Time) (count int64, bytes int64, err error) {
	var vs []*PublishJob
	q := s.db.WithContext(ctx).
		Where("user_address = ? AND created_at >= ?", userAddress, since)
	if err := q.Find(&vs).Error; err != nil {
		return 0, 0, fmt.Errorf("storage: failed to compute rolling window usage: %w", err)
	}
	for _, v := range vs {
		count++
		bytes += v.FileSize
	}
	return count, bytes, nil
}
