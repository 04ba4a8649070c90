package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/personal_cloud/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserConflict = errors.New("user already exists")
)

// isDuplicateErr recognizes uniqueness violations. TranslateError covers the
// postgres driver; the raw message checks cover drivers without a translator,
// like the sqlite one used in tests.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// GormRepo is the credential store.
type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) FindByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return count > 0, nil
}

// Create inserts the user and creates its storage root as one unit: the
// directory is made first, and removed again if the insert (or its commit)
// fails, so neither an identity without a directory nor a directory without
// an identity survives. Concurrent duplicates are resolved by the DB
// constraints: exactly one insert wins, the rest get ErrUserConflict.
func (r *GormRepo) Create(ctx context.Context, user *models.User) error {
	if user.PasswordHash == nil && user.GoogleID == nil {
		return errors.New("user needs a password or a google identity")
	}

	madeDir := false
	if stat, err := os.Stat(user.StoragePath); err != nil || !stat.IsDir() {
		if err := os.MkdirAll(user.StoragePath, 0o755); err != nil {
			return fmt.Errorf("create storage root: %w", err)
		}
		madeDir = true
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if isDuplicateErr(err) {
				return ErrUserConflict
			}
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil && madeDir {
		os.Remove(user.StoragePath)
	}
	return err
}
