package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"manuscript-review-api/models"
	"manuscript-review-api/utils"
)

// MailSender delivers an HTML email. config.Mailer satisfies it.
type MailSender interface {
	SendMail(to []string, subject, html string) error
}

// Message is the content of one notification event.
type Message struct {
	Title        string
	Body         string
	Type         string // info|success|warning|error
	ManuscriptID *uint
}

type ListOptions struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

type NotificationPage struct {
	Items       []models.Notification `json:"notifications"`
	Total       int64                 `json:"total"`
	UnreadCount int64                 `json:"unreadCount"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
}

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// NotificationService creates and manages per-user notifications. Creation is
// fire-and-forget from the workflow's point of view.
type NotificationService struct {
	db       *gorm.DB
	mailer   MailSender
	linkBase string
	now      func() time.Time

	// mailWG tracks background email goroutines.
	mailWG sync.WaitGroup
}

func NewNotificationService(db *gorm.DB, mailer MailSender) *NotificationService {
	return &NotificationService{db: db, mailer: mailer, now: time.Now}
}

// WithLinkBase makes emails about a manuscript link to
// <base>/manuscripts/<id>. An empty base leaves emails without links.
func (s *NotificationService) WithLinkBase(base string) *NotificationService {
	s.linkBase = strings.TrimRight(strings.TrimSpace(base), "/")
	return s
}

func (s *NotificationService) manuscriptLink(id *uint) string {
	if s.linkBase == "" || id == nil {
		return ""
	}
	return fmt.Sprintf("%s/manuscripts/%d", s.linkBase, *id)
}

func (s *NotificationService) build(userID uint, msg Message) models.Notification {
	typ := msg.Type
	if typ == "" {
		typ = models.NotificationInfo
	}
	return models.Notification{
		UserID:              userID,
		Title:               utils.TruncateRunes(msg.Title, 200),
		Message:             utils.TruncateRunes(msg.Body, models.MaxNotificationMessageLength),
		Type:                typ,
		RelatedManuscriptID: msg.ManuscriptID,
		IsRead:              false,
		CreateAt:            s.now(),
	}
}

// Notify creates one notification. The target is not checked; a dangling
// user id is stored as-is.
func (s *NotificationService) Notify(ctx context.Context, userID uint, msg Message) (*models.Notification, error) {
	n := s.build(userID, msg)
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, fmt.Errorf("create notification for user %d: %w", userID, err)
	}
	return &n, nil
}

// NotifyAll fans msg out to every id concurrently. There is no ordering and
// no all-or-nothing guarantee: it returns how many rows were created and the
// joined errors of the rest. Duplicate ids receive a single notification.
func (s *NotificationService) NotifyAll(ctx context.Context, userIDs []uint, msg Message) (int, error) {
	targets := utils.UniqueUints(userIDs)
	if len(targets) == 0 {
		return 0, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered []uint
		errs      []error
	)
	for _, id := range targets {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := s.Notify(ctx, userID, msg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			delivered = append(delivered, userID)
		}(id)
	}
	wg.Wait()

	if s.mailer != nil && len(delivered) > 0 {
		s.mirrorToEmail(ctx, delivered, msg)
	}

	return len(delivered), errors.Join(errs...)
}

// mirrorToEmail sends the notification by email in the background. Failures
// are only logged.
func (s *NotificationService) mirrorToEmail(ctx context.Context, userIDs []uint, msg Message) {
	var recipients []models.User
	if err := s.db.WithContext(ctx).
		Select("user_id", "name", "email").
		Where("user_id IN ? AND is_active = ?", userIDs, true).
		Find(&recipients).Error; err != nil {
		log.Printf("notification email lookup failed: %v", err)
		return
	}

	link := s.manuscriptLink(msg.ManuscriptID)
	s.mailWG.Add(1)
	go func() {
		defer s.mailWG.Done()
		for _, r := range recipients {
			if r.Email == "" {
				continue
			}
			html := buildFormalEmailHTML(msg.Title, r.Name, msg.Body, link)
			if err := s.mailer.SendMail([]string{r.Email}, msg.Title, html); err != nil {
				log.Printf("notification email send failed (subject=%q to=%s): %v", msg.Title, r.Email, err)
			}
		}
	}()
}

// WaitForMail blocks until background email sends have finished.
func (s *NotificationService) WaitForMail() {
	s.mailWG.Wait()
}

// List returns the user's notifications newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, opts ListOptions) (*NotificationPage, error) {
	limit := opts.Limit
	if limit <= 0 || limit > maxNotificationLimit {
		limit = defaultNotificationLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	db := s.db.WithContext(ctx)
	q := db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if opts.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}

	page := &NotificationPage{Limit: limit, Offset: offset, Items: []models.Notification{}}
	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	if err := q.Session(&gorm.Session{}).
		Order("create_at DESC").Order("notification_id DESC").
		Limit(limit).Offset(offset).
		Find(&page.Items).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	page.UnreadCount = unread
	return page, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).
		Where("notification_id = ? AND user_id = ?", id, userID).
		First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("notification")
		}
		return nil, fmt.Errorf("load notification %d: %w", id, err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&n).
		Updates(map[string]any{"is_read": true, "update_at": now}).Error; err != nil {
		return nil, fmt.Errorf("mark notification %d read: %w", id, err)
	}
	n.IsRead = true
	n.UpdateAt = &now
	return &n, nil
}

// MarkAllRead is an unconditional bulk update; calling it twice is harmless.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "update_at": s.now()})
	if res.Error != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(ctx context.Context, id, userID uint) error {
	res := s.db.WithContext(ctx).
		Where("notification_id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("delete notification %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("notification")
	}
	return nil
}

// DeleteAll removes every notification of the user; zero rows is success.
func (s *NotificationService) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}
