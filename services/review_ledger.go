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

type ReviewInput struct {
	Recommendation string
	Comments       string
	Strengths      *string
	Weaknesses     *string
	Suggestions    *string
}

func (in ReviewInput) validate() error {
	if !models.IsValidRecommendation(in.Recommendation) {
		return validationError("recommendation must be one of %s", strings.Join(models.Recommendations, ", "))
	}
	if utils.SanitizeInput(in.Comments) == "" {
		return validationError("comments are required")
	}
	return nil
}

// ReviewLedger stores one immutable review per (manuscript, reviewer) pair.
type ReviewLedger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReviewLedger(db *gorm.DB) *ReviewLedger {
	return &ReviewLedger{db: db, now: time.Now}
}

// WithTx returns a ledger bound to tx.
func (l *ReviewLedger) WithTx(tx *gorm.DB) *ReviewLedger {
	return &ReviewLedger{db: tx, now: l.now}
}

// Exists reports whether reviewerID already reviewed manuscriptID.
func (l *ReviewLedger) Exists(ctx context.Context, manuscriptID, reviewerID uint) (bool, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&models.Review{}).
		Where("manuscript_id = ? AND reviewer_id = ?", manuscriptID, reviewerID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	return count > 0, nil
}

// Create records a review. The uniqueness check is lookup-then-insert; two
// racing inserts for the same pair are caught by the unique index and also
// reported as a conflict.
func (l *ReviewLedger) Create(ctx context.Context, manuscriptID, reviewerID uint, in ReviewInput) (*models.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	exists, err := l.Exists(ctx, manuscriptID, reviewerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}

	review := &models.Review{
		ManuscriptID:   manuscriptID,
		ReviewerID:     reviewerID,
		Recommendation: in.Recommendation,
		Comments:       utils.SanitizeInput(in.Comments),
		Strengths:      utils.SanitizeOptional(in.Strengths),
		Weaknesses:     utils.SanitizeOptional(in.Weaknesses),
		Suggestions:    utils.SanitizeOptional(in.Suggestions),
		CreateAt:       l.now(),
	}
	if err := l.db.WithContext(ctx).Create(review).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

// CountFor returns the number of reviews recorded for manuscriptID.
func (l *ReviewLedger) CountFor(ctx context.Context, manuscriptID uint) (int64, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&models.Review{}).
		Where("manuscript_id = ?", manuscriptID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return count, nil
}

// ListFor returns reviews newest first with the reviewer attached.
func (l *ReviewLedger) ListFor(ctx context.Context, manuscriptID uint) ([]models.Review, error) {
	reviews := []models.Review{}
	if err := l.db.WithContext(ctx).
		Preload("Reviewer").
		Where("manuscript_id = ?", manuscriptID).
		Order("create_at DESC").Order("review_id DESC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
