package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"manuscript-review-api/models"
	"manuscript-review-api/utils"
)

// UserDirectory resolves identities and roles for the workflow engine.
type UserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, "user_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("user")
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("user")
		}
		return nil, fmt.Errorf("load user by email: %w", err)
	}
	return &user, nil
}

// FindByRole lists users holding role, oldest first.
func (d *UserDirectory) FindByRole(ctx context.Context, role string, activeOnly bool) ([]models.User, error) {
	q := d.db.WithContext(ctx).Where("role = ?", role)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var users []models.User
	if err := q.Order("user_id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users by role %s: %w", role, err)
	}
	return users, nil
}

// StaffIDs returns the ids of active users holding any of roles, deduplicated.
func (d *UserDirectory) StaffIDs(ctx context.Context, roles ...string) ([]uint, error) {
	var ids []uint
	err := d.db.WithContext(ctx).Model(&models.User{}).
		Where("role IN ? AND is_active = ?", roles, true).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list staff ids: %w", err)
	}
	return ids, nil
}

// FindActiveReviewersByIDs resolves ids to active REVIEWER users. It fails
// with a validation error when the list is empty or any id does not resolve.
func (d *UserDirectory) FindActiveReviewersByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	unique := utils.UniqueUints(ids)
	if len(unique) == 0 {
		return nil, validationError("reviewerIds must be a non-empty list")
	}
	for _, id := range unique {
		if id == 0 {
			return nil, validationError("reviewerIds contains an invalid id")
		}
	}

	var users []models.User
	err := d.db.WithContext(ctx).
		Where("user_id IN ? AND role = ? AND is_active = ?", unique, models.RoleReviewer, true).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("load reviewers: %w", err)
	}

	if len(users) != len(unique) {
		found := make(map[uint]struct{}, len(users))
		for _, u := range users {
			found[u.UserID] = struct{}{}
		}
		missing := make([]uint, 0)
		for _, id := range unique {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, validationError("reviewer ids %v are not active reviewers", missing)
	}

	// Keep the caller's order.
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.UserID] = u
	}
	ordered := make([]models.User, 0, len(unique))
	for _, id := range unique {
		ordered = append(ordered, byID[id])
	}
	return ordered, nil
}

// List returns users, optionally filtered by role.
func (d *UserDirectory) List(ctx context.Context, role string) ([]models.User, error) {
	q := d.db.WithContext(ctx).Order("user_id ASC")
	if role != "" {
		if !models.IsValidRole(role) {
			return nil, validationError("invalid role %q", role)
		}
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetActive activates or soft-deactivates a user. Users are never deleted.
func (d *UserDirectory) SetActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	user, err := d.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := d.db.WithContext(ctx).Model(user).
		Updates(map[string]any{"is_active": active, "update_at": now}).Error; err != nil {
		return nil, fmt.Errorf("update user %d activation: %w", id, err)
	}
	user.IsActive = active
	user.UpdateAt = &now
	return user, nil
}

// Create inserts a new user. Duplicate emails are a conflict.
func (d *UserDirectory) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	var count int64
	if err := d.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return conflictError("email is already registered")
	}

	if user.CreateAt.IsZero() {
		user.CreateAt = time.Now()
	}
	if err := d.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
