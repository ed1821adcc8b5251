package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UserIdentity is the minimal gate checked before a wallet can publish.
// Identity verification itself (the webhook, ENS, EIP-712 relaying) is
// out of scope per spec §1; this table only records the outcome.
type UserIdentity struct {
	UserAddress string `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Verified bool `gorm:"not null;default:false"`
}

func (s *Store) GetUserIdentity(ctx context.Context, userAddress string) (*UserIdentity, error) {
	var v UserIdentity
	if err := s.db.WithContext(ctx).First(&v, "user_address = ?", userAddress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get user identity %s: %w", userAddress, err)
	}
	return &v, nil
}

func (s *Store) SetUserIdentity(ctx context.Context, v *UserIdentity) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set user identity %s: %w", v.UserAddress, err)
	}
	return nil
}
