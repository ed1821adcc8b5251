package storage

import (
	"context"
	"fmt"
	"time"
)

// UploadBan is the music_upload_bans table: a per-user publish block,
// optionally time-limited. A nil ExpiresAt is a permanent ban.
type UploadBan struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time

	UserAddress string `gorm:"index;not null;default:''"`
	Reason      string `gorm:"not null;default:''"`
	ExpiresAt   *time.Time
}

// ActiveBan returns the first non-expired ban for the address, or nil
// if the user may currently publish.
func (s *Store) ActiveBan(ctx context.Context, userAddress string, now time.Time) (*UploadBan, error) {
	var vs []*UploadBan
	q := s.db.WithContext(ctx).
		Where("user_address = ?", userAddress).
		Where("expires_at IS NULL OR expires_at > ?", now)
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to look up upload bans: %w", err)
	}
	if len(vs) == 0 {
		return nil, nil
	}
	return vs[0], nil
}

func (s *Store) CreateUploadBan(ctx context.Context, v *UploadBan) error {
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("storage: failed to create upload ban for %s: %w", v.UserAddress, err)
	}
	return nil
}
