package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"manuscript-review-api/models"
	"manuscript-review-api/utils"
)

// Notifier is the fan-out half of the notification dispatcher.
type Notifier interface {
	NotifyAll(ctx context.Context, userIDs []uint, msg Message) (int, error)
}

// ManuscriptDraft is what an author submits.
type ManuscriptDraft struct {
	Title    string
	Abstract string
	Keywords []string
	Authors  string
	File     *Upload
}

// ReviewResult is returned by SubmitReview.
type ReviewResult struct {
	Review                 *models.Review `json:"review"`
	ManuscriptStatus       string         `json:"manuscriptStatus"`
	TotalReviews           int64          `json:"totalReviews"`
	TotalAssignedReviewers int            `json:"totalAssignedReviewers"`
}

// ReviewSummary lists a manuscript's reviews with completion counts.
type ReviewSummary struct {
	ManuscriptID           uint            `json:"manuscriptId"`
	Status                 string          `json:"status"`
	Reviews                []models.Review `json:"reviews"`
	TotalReviews           int             `json:"totalReviews"`
	TotalAssignedReviewers int             `json:"totalAssignedReviewers"`
}

const overrideReason = "administrative override"

// WorkflowService owns the manuscript status state machine:
//
//	SUBMITTED -> UNDER_REVIEW -> DECISION_READY -> ACCEPTED | REJECTED
//
// Writes to one manuscript run in a transaction guarded by an optimistic
// version check, so a concurrent writer loses with a conflict instead of
// silently overwriting. Notifications are sent only after commit and their
// failures never undo the write.
type WorkflowService struct {
	db       *gorm.DB
	users    *UserDirectory
	reviews  *ReviewLedger
	notifier Notifier
	files    *FileStore
	now      func() time.Time
}

func NewWorkflowService(db *gorm.DB, users *UserDirectory, reviews *ReviewLedger, notifier Notifier, files *FileStore) *WorkflowService {
	return &WorkflowService{
		db:       db,
		users:    users,
		reviews:  reviews,
		notifier: notifier,
		files:    files,
		now:      time.Now,
	}
}

/* ==========================
   Commands
   ========================== */

// Submit stores a new manuscript in SUBMITTED and notifies the author and
// every active admin and editor.
func (s *WorkflowService) Submit(ctx context.Context, draft ManuscriptDraft, author *models.User) (*models.Manuscript, error) {
	if !CanPerform(author, ActionSubmit, nil) {
		return nil, authorizationError("only active authors can submit manuscripts")
	}

	title := utils.SanitizeInput(draft.Title)
	abstract := utils.SanitizeInput(draft.Abstract)
	authors := utils.SanitizeInput(draft.Authors)
	keywords := utils.ParseKeywords(draft.Keywords...)

	missing := make([]string, 0, 5)
	if title == "" {
		missing = append(missing, "title")
	}
	if abstract == "" {
		missing = append(missing, "abstract")
	}
	if len(keywords) == 0 {
		missing = append(missing, "keywords")
	}
	if authors == "" {
		missing = append(missing, "authors")
	}
	if draft.File == nil {
		missing = append(missing, "file")
	}
	if len(missing) > 0 {
		return nil, validationError("missing required fields: %s", strings.Join(missing, ", "))
	}

	stored, err := s.files.Save(author.UserID, draft.File)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := &models.Manuscript{
		Title:       title,
		Abstract:    abstract,
		Authors:     authors,
		SubmittedBy: author.UserID,
		Status:      models.StatusSubmitted,
		FileName:    stored.OriginalName,
		FilePath:    stored.Path,
		FileSize:    stored.Size,
		MimeType:    stored.MimeType,
		Version:     1,
		CreateAt:    now,
	}
	if err := m.SetKeywords(keywords); err != nil {
		_ = s.files.Remove(stored.Path)
		return nil, fmt.Errorf("encode keywords: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("create manuscript: %w", err)
		}
		return s.recordStatus(tx, m.ManuscriptID, nil, models.StatusSubmitted, author.UserID, nil)
	})
	if err != nil {
		if rmErr := s.files.Remove(stored.Path); rmErr != nil {
			log.Printf("remove orphaned upload %s: %v", stored.Path, rmErr)
		}
		return nil, err
	}

	s.afterCommit(ctx, "submit", func(ctx context.Context) error {
		id := m.ManuscriptID
		authorErr := s.notify(ctx, []uint{author.UserID}, Message{
			Title:        "Manuscript submitted",
			Body:         fmt.Sprintf("Your manuscript %q has been submitted successfully.", m.Title),
			Type:         models.NotificationSuccess,
			ManuscriptID: &id,
		})
		staffErr := s.notifyStaff(ctx, []string{models.RoleAdmin, models.RoleEditor}, Message{
			Title:        "New manuscript submitted",
			Body:         fmt.Sprintf("A new manuscript %q was submitted by %s.", m.Title, author.Name),
			Type:         models.NotificationInfo,
			ManuscriptID: &id,
		})
		return errors.Join(authorErr, staffErr)
	})

	return m, nil
}

// AssignReviewers overwrites the assigned-reviewer set and moves the
// manuscript to UNDER_REVIEW. Reviews already recorded are kept.
func (s *WorkflowService) AssignReviewers(ctx context.Context, manuscriptID uint, reviewerIDs []uint, editor *models.User) (*models.Manuscript, error) {
	if !CanPerform(editor, ActionAssignReviewers, nil) {
		return nil, authorizationError("only editors and admins can assign reviewers")
	}

	m, err := s.load(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}

	reviewers, err := s.users.FindActiveReviewersByIDs(ctx, reviewerIDs)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(m.Status) {
		return nil, stateError("manuscript is already %s", m.Status)
	}

	oldStatus := m.Status
	now := s.now()
	rows := make([]models.ManuscriptReviewer, 0, len(reviewers))
	for i := range reviewers {
		rows = append(rows, models.ManuscriptReviewer{
			ManuscriptID: m.ManuscriptID,
			ReviewerID:   reviewers[i].UserID,
			AssignedBy:   editor.UserID,
			AssignedAt:   now,
			Reviewer:     &reviewers[i],
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.compareAndSwap(tx, m, map[string]any{"status": models.StatusUnderReview}); err != nil {
			return err
		}
		if err := tx.Where("manuscript_id = ?", m.ManuscriptID).Delete(&models.ManuscriptReviewer{}).Error; err != nil {
			return fmt.Errorf("clear reviewer assignments: %w", err)
		}
		if err := tx.Omit("Reviewer").Create(&rows).Error; err != nil {
			return fmt.Errorf("save reviewer assignments: %w", err)
		}
		if oldStatus != models.StatusUnderReview {
			return s.recordStatus(tx, m.ManuscriptID, &oldStatus, models.StatusUnderReview, editor.UserID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.Assignments = rows

	s.afterCommit(ctx, "assign reviewers", func(ctx context.Context) error {
		id := m.ManuscriptID
		ids := m.ReviewerIDs()
		authorErr := s.notify(ctx, []uint{m.SubmittedBy}, Message{
			Title:        "Manuscript under review",
			Body:         fmt.Sprintf("Your manuscript %q is now under review by %d reviewer(s).", m.Title, len(ids)),
			Type:         models.NotificationInfo,
			ManuscriptID: &id,
		})
		reviewerErr := s.notify(ctx, ids, Message{
			Title:        "Review assignment",
			Body:         fmt.Sprintf("You have been assigned to review the manuscript %q.", m.Title),
			Type:         models.NotificationInfo,
			ManuscriptID: &id,
		})
		staffErr := s.notifyStaff(ctx, []string{models.RoleAdmin, models.RoleEditor}, Message{
			Title:        "Reviewers assigned",
			Body:         fmt.Sprintf("%d reviewer(s) were assigned to %q by %s.", len(ids), m.Title, editor.Name),
			Type:         models.NotificationInfo,
			ManuscriptID: &id,
		})
		return errors.Join(authorErr, reviewerErr, staffErr)
	})

	return m, nil
}

// SubmitReview records the reviewer's recommendation and escalates the
// manuscript status: the first review moves SUBMITTED to UNDER_REVIEW, and
// once the number of reviews reaches the number of assigned reviewers the
// manuscript becomes DECISION_READY.
//
// The completion test is totalReviews >= totalAssignedReviewers over every
// review ever recorded for the manuscript, including reviews by reviewers
// that were later unassigned. After a reassignment this can reach
// DECISION_READY before every current reviewer has reported.
func (s *WorkflowService) SubmitReview(ctx context.Context, manuscriptID uint, reviewer *models.User, in ReviewInput) (*ReviewResult, error) {
	m, err := s.load(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}
	if !CanPerform(reviewer, ActionSubmitReview, m) {
		return nil, authorizationError("you are not assigned to review this manuscript")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	exists, err := s.reviews.Exists(ctx, m.ManuscriptID, reviewer.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}
	if models.IsTerminalStatus(m.Status) {
		return nil, stateError("manuscript is already %s", m.Status)
	}

	var (
		review    *models.Review
		total     int64
		oldStatus = m.Status
		assigned  = len(m.Assignments)
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := s.reviews.WithTx(tx)

		created, err := ledger.Create(ctx, m.ManuscriptID, reviewer.UserID, in)
		if err != nil {
			return err
		}
		review = created

		total, err = ledger.CountFor(ctx, m.ManuscriptID)
		if err != nil {
			return err
		}

		next := nextStatusAfterReview(oldStatus, total, assigned)

		// The version bump also runs when the status does not change, so two
		// reviews racing on the same manuscript cannot both commit against
		// the same count.
		if err := s.compareAndSwap(tx, m, map[string]any{"status": next}); err != nil {
			return err
		}
		if next != oldStatus {
			return s.recordStatus(tx, m.ManuscriptID, &oldStatus, next, reviewer.UserID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	review.Reviewer = reviewer

	s.afterCommit(ctx, "submit review", func(ctx context.Context) error {
		id := m.ManuscriptID
		body := fmt.Sprintf("A review was submitted for %q (%d of %d reviews received).", m.Title, total, assigned)
		if m.Status == models.StatusDecisionReady {
			body = fmt.Sprintf("All reviews are in for %q; it is ready for a decision.", m.Title)
		}
		authorErr := s.notify(ctx, []uint{m.SubmittedBy}, Message{
			Title:        "Review received",
			Body:         body,
			Type:         models.NotificationInfo,
			ManuscriptID: &id,
		})
		staffErr := s.notifyStaff(ctx, []string{models.RoleAdmin, models.RoleEditor}, Message{
			Title:        "Review submitted",
			Body:         fmt.Sprintf("%s recommended %s for %q. %s", reviewer.Name, review.Recommendation, m.Title, statusLine(m.Status)),
			Type:         models.NotificationInfo,
			ManuscriptID: &id,
		})
		return errors.Join(authorErr, staffErr)
	})

	return &ReviewResult{
		Review:                 review,
		ManuscriptStatus:       m.Status,
		TotalReviews:           total,
		TotalAssignedReviewers: assigned,
	}, nil
}

// nextStatusAfterReview applies the escalation rule after a review insert.
func nextStatusAfterReview(current string, totalReviews int64, totalAssigned int) string {
	next := current
	if next == models.StatusSubmitted {
		next = models.StatusUnderReview
	}
	if next == models.StatusUnderReview && totalReviews >= int64(totalAssigned) {
		next = models.StatusDecisionReady
	}
	return next
}

// MakeDecision renders ACCEPTED or REJECTED on a DECISION_READY manuscript.
func (s *WorkflowService) MakeDecision(ctx context.Context, manuscriptID uint, decision string, editor *models.User) (*models.Manuscript, error) {
	if decision != models.StatusAccepted && decision != models.StatusRejected {
		return nil, validationError("decision must be %s or %s", models.StatusAccepted, models.StatusRejected)
	}
	if !CanPerform(editor, ActionDecide, nil) {
		return nil, authorizationError("only editors and admins can make decisions")
	}

	m, err := s.load(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusDecisionReady {
		return nil, stateError("manuscript must be %s to make a decision (current: %s)", models.StatusDecisionReady, m.Status)
	}

	oldStatus := m.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.compareAndSwap(tx, m, map[string]any{"status": decision}); err != nil {
			return err
		}
		return s.recordStatus(tx, m.ManuscriptID, &oldStatus, decision, editor.UserID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, "decision", func(ctx context.Context) error {
		id := m.ManuscriptID
		typ := models.NotificationSuccess
		verb := "accepted"
		if decision == models.StatusRejected {
			typ = models.NotificationWarning
			verb = "rejected"
		}
		authorErr := s.notify(ctx, []uint{m.SubmittedBy}, Message{
			Title:        "Decision on your manuscript",
			Body:         fmt.Sprintf("Your manuscript %q has been %s.", m.Title, verb),
			Type:         typ,
			ManuscriptID: &id,
		})
		adminErr := s.notifyStaff(ctx, []string{models.RoleAdmin}, Message{
			Title:        "Decision recorded",
			Body:         fmt.Sprintf("%s marked %q as %s.", editor.Name, m.Title, decision),
			Type:         models.NotificationInfo,
			ManuscriptID: &id,
		})
		return errors.Join(authorErr, adminErr)
	})

	return m, nil
}

// SetStatus is the administrative override: it writes any valid status and
// skips every transition guard.
func (s *WorkflowService) SetStatus(ctx context.Context, manuscriptID uint, status string, editor *models.User) (*models.Manuscript, error) {
	if !models.IsValidManuscriptStatus(status) {
		return nil, validationError("status must be one of %s", strings.Join(models.ManuscriptStatuses, ", "))
	}
	if !CanPerform(editor, ActionOverrideStatus, nil) {
		return nil, authorizationError("only editors and admins can change status")
	}

	m, err := s.load(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}

	oldStatus := m.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.compareAndSwap(tx, m, map[string]any{"status": status}); err != nil {
			return err
		}
		reason := overrideReason
		return s.recordStatus(tx, m.ManuscriptID, &oldStatus, status, editor.UserID, &reason)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

/* ==========================
   Queries
   ========================== */

// Get returns a populated manuscript the actor is allowed to see.
func (s *WorkflowService) Get(ctx context.Context, manuscriptID uint, actor *models.User) (*models.Manuscript, error) {
	m, err := s.load(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}
	if !CanPerform(actor, ActionView, m) {
		return nil, authorizationError("you do not have access to this manuscript")
	}
	return m, nil
}

// ListAll returns every manuscript, newest first.
func (s *WorkflowService) ListAll(ctx context.Context, actor *models.User, status string) ([]models.Manuscript, error) {
	if !CanPerform(actor, ActionListAll, nil) {
		return nil, authorizationError("only editors and admins can list all manuscripts")
	}
	q := s.populated(s.db.WithContext(ctx))
	if status != "" {
		if !models.IsValidManuscriptStatus(status) {
			return nil, validationError("invalid status filter %q", status)
		}
		q = q.Where("status = ?", status)
	}
	return s.find(q)
}

// ListByAuthor returns the actor's own submissions.
func (s *WorkflowService) ListByAuthor(ctx context.Context, actor *models.User) ([]models.Manuscript, error) {
	if !HasRole(actor, models.RoleAuthor) {
		return nil, authorizationError("only authors have submissions")
	}
	return s.find(s.populated(s.db.WithContext(ctx)).Where("submitted_by = ?", actor.UserID))
}

// ListAssigned returns manuscripts the reviewer is currently assigned to.
func (s *WorkflowService) ListAssigned(ctx context.Context, actor *models.User) ([]models.Manuscript, error) {
	if !HasRole(actor, models.RoleReviewer) {
		return nil, authorizationError("only reviewers have assignments")
	}
	sub := s.db.Model(&models.ManuscriptReviewer{}).Select("manuscript_id").Where("reviewer_id = ?", actor.UserID)
	return s.find(s.populated(s.db.WithContext(ctx)).Where("manuscript_id IN (?)", sub))
}

// Reviews lists a manuscript's reviews with completion counts.
func (s *WorkflowService) Reviews(ctx context.Context, manuscriptID uint, actor *models.User) (*ReviewSummary, error) {
	if !CanPerform(actor, ActionViewReviews, nil) {
		return nil, authorizationError("only editors and admins can read reviews")
	}
	m, err := s.load(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListFor(ctx, manuscriptID)
	if err != nil {
		return nil, err
	}
	return &ReviewSummary{
		ManuscriptID:           m.ManuscriptID,
		Status:                 m.Status,
		Reviews:                reviews,
		TotalReviews:           len(reviews),
		TotalAssignedReviewers: len(m.Assignments),
	}, nil
}

// History returns the status changes of a manuscript, oldest first.
func (s *WorkflowService) History(ctx context.Context, manuscriptID uint, actor *models.User) ([]models.ManuscriptStatusHistory, error) {
	if _, err := s.Get(ctx, manuscriptID, actor); err != nil {
		return nil, err
	}
	rows := []models.ManuscriptStatusHistory{}
	if err := s.db.WithContext(ctx).
		Where("manuscript_id = ?", manuscriptID).
		Order("history_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	return rows, nil
}

/* ==========================
   Helpers
   ========================== */

func (s *WorkflowService) populated(db *gorm.DB) *gorm.DB {
	return db.Preload("Submitter").Preload("Assignments", func(db *gorm.DB) *gorm.DB {
		return db.Order("assigned_at ASC").Order("reviewer_id ASC")
	}).Preload("Assignments.Reviewer")
}

func (s *WorkflowService) find(q *gorm.DB) ([]models.Manuscript, error) {
	items := []models.Manuscript{}
	if err := q.Order("create_at DESC").Order("manuscript_id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list manuscripts: %w", err)
	}
	return items, nil
}

func (s *WorkflowService) load(ctx context.Context, db *gorm.DB, id uint) (*models.Manuscript, error) {
	var m models.Manuscript
	if err := s.populated(db.WithContext(ctx)).First(&m, "manuscript_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("manuscript")
		}
		return nil, fmt.Errorf("load manuscript %d: %w", id, err)
	}
	return &m, nil
}

// compareAndSwap applies updates only if the row still carries m.Version,
// then advances m in place.
func (s *WorkflowService) compareAndSwap(tx *gorm.DB, m *models.Manuscript, updates map[string]any) error {
	now := s.now()
	updates["version"] = m.Version + 1
	updates["update_at"] = now

	res := tx.Model(&models.Manuscript{}).
		Where("manuscript_id = ? AND version = ?", m.ManuscriptID, m.Version).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update manuscript %d: %w", m.ManuscriptID, res.Error)
	}
	if res.RowsAffected == 0 {
		return conflictError("manuscript was modified concurrently, please retry")
	}

	m.Version++
	m.UpdateAt = &now
	if status, ok := updates["status"].(string); ok {
		m.Status = status
	}
	return nil
}

func (s *WorkflowService) recordStatus(tx *gorm.DB, manuscriptID uint, oldStatus *string, newStatus string, changedBy uint, reason *string) error {
	row := models.ManuscriptStatusHistory{
		ManuscriptID: manuscriptID,
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
		ChangedBy:    changedBy,
		Reason:       reason,
		CreatedAt:    s.now(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("record status history: %w", err)
	}
	return nil
}

// afterCommit runs post-commit side effects on a context that outlives the
// request. Errors are logged only.
func (s *WorkflowService) afterCommit(ctx context.Context, op string, fn func(context.Context) error) {
	if err := fn(persistentContext(ctx)); err != nil {
		log.Printf("%s: notification fan-out incomplete: %v", op, err)
	}
}

func (s *WorkflowService) notify(ctx context.Context, ids []uint, msg Message) error {
	if s.notifier == nil || len(ids) == 0 {
		return nil
	}
	_, err := s.notifier.NotifyAll(ctx, ids, msg)
	return err
}

func (s *WorkflowService) notifyStaff(ctx context.Context, roles []string, msg Message) error {
	ids, err := s.users.StaffIDs(ctx, roles...)
	if err != nil {
		return err
	}
	return s.notify(ctx, ids, msg)
}

func statusLine(status string) string {
	if status == models.StatusDecisionReady {
		return "The manuscript is ready for a decision."
	}
	return "Status: " + status + "."
}
