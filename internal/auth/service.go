package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserNotFound = errors.New("user not found")

// AuthService provides user directory lookups for authentication and approver checks.
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new AuthService instance
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{
		db: db,
	}
}

// GetUser retrieves a user by record id.
func (as *AuthService) GetUser(ctx context.Context, recordID string) (*User, error) {
	if recordID == "" {
		return nil, fmt.Errorf("user record ID is empty")
	}

	var user User
	result := as.db.WithContext(ctx).Where("record_id = ?", recordID).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Debug().Str("record_id", recordID).Msg("user not found")
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, recordID)
		}
		log.Error().Err(result.Error).Str("record_id", recordID).Msg("failed to fetch user from database")
		return nil, fmt.Errorf("failed to fetch user: %w", result.Error)
	}

	return &user, nil
}

// IsActiveApprover reports whether the user exists and is active, i.e. may be assigned to a step.
func (as *AuthService) IsActiveApprover(ctx context.Context, recordID string) (bool, error) {
	user, err := as.GetUser(ctx, recordID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Active, nil
}

// DisplayName resolves a user's name, falling back to the record id for unknown users.
func (as *AuthService) DisplayName(ctx context.Context, recordID string) (string, error) {
	user, err := as.GetUser(ctx, recordID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return recordID, nil
		}
		return "", err
	}
	return user.DisplayName(), nil
}

func (as *AuthService) IsAdmin(ctx context.Context, recordID string) (bool, error) {
	user, err := as.GetUser(ctx, recordID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Active && user.IsAdmin, nil
}

// SetApproverFlagInTx records whether a user is currently assigned to any workflow step.
// Unknown users are ignored.
func (as *AuthService) SetApproverFlagInTx(ctx context.Context, tx *gorm.DB, recordID string, isApprover bool) error {
	now := time.Now().UTC()
	result := tx.WithContext(ctx).Model(&User{}).
		Where("record_id = ? AND is_approver <> ?", recordID, isApprover).
		Updates(map[string]any{"is_approver": isApprover, "approver_updated_at": now})
	if result.Error != nil {
		return fmt.Errorf("failed to update approver flag for %s: %w", recordID, result.Error)
	}
	if result.RowsAffected > 0 {
		log.Debug().Str("record_id", recordID).Bool("is_approver", isApprover).Msg("approver flag updated")
	}
	return nil
}

// UpsertUser creates the user or updates the profile fields of an existing record id.
func (as *AuthService) UpsertUser(ctx context.Context, user *User) error {
	if user.RecordID == "" {
		return fmt.Errorf("user record ID is empty")
	}
	err := as.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fullname", "email", "active", "is_admin", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.RecordID, err)
	}
	return nil
}
