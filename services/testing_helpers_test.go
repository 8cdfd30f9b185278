package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"manuscript-review-api/models"
)

// newTestDB opens a fresh in-memory database with the full schema. A single
// connection keeps every query on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, role string, active bool) *models.User {
	t.Helper()
	u := &models.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@journal.test",
		Password: "$2a$10$0000000000000000000000000000000000000000000000000000",
		Role:     role,
		IsActive: active,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func testUpload(name, body string) *Upload {
	return &Upload{
		Filename:    name,
		Size:        int64(len(body)),
		ContentType: "application/pdf",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func countNotifications(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

type sentMail struct {
	To      []string
	Subject string
	HTML    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendMail(to []string, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return m.err
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

type failingNotifier struct {
	calls int
}

func (n *failingNotifier) NotifyAll(ctx context.Context, userIDs []uint, msg Message) (int, error) {
	n.calls++
	return 0, io.ErrUnexpectedEOF
}

// journal is a seeded cast of users and the services under test.
type journal struct {
	db            *gorm.DB
	users         *UserDirectory
	reviews       *ReviewLedger
	notifications *NotificationService
	files         *FileStore
	workflow      *WorkflowService

	author, otherAuthor *models.User
	editor, admin       *models.User
	inactiveEditor      *models.User
	r1, r2, r3          *models.User
	inactiveReviewer    *models.User
}

func newJournal(t *testing.T) *journal {
	t.Helper()
	db := newTestDB(t)

	j := &journal{db: db}
	j.users = NewUserDirectory(db)
	j.reviews = NewReviewLedger(db)
	j.notifications = NewNotificationService(db, nil)
	j.files = NewFileStore(t.TempDir(), 1<<20)
	j.workflow = NewWorkflowService(db, j.users, j.reviews, j.notifications, j.files)

	j.author = seedUser(t, db, "Ada Author", models.RoleAuthor, true)
	j.otherAuthor = seedUser(t, db, "Otto Author", models.RoleAuthor, true)
	j.editor = seedUser(t, db, "Eve Editor", models.RoleEditor, true)
	j.admin = seedUser(t, db, "Al Admin", models.RoleAdmin, true)
	j.inactiveEditor = seedUser(t, db, "Ivy Editor", models.RoleEditor, false)
	j.r1 = seedUser(t, db, "Rita Reviewer", models.RoleReviewer, true)
	j.r2 = seedUser(t, db, "Rob Reviewer", models.RoleReviewer, true)
	j.r3 = seedUser(t, db, "Ray Reviewer", models.RoleReviewer, true)
	j.inactiveReviewer = seedUser(t, db, "Ian Reviewer", models.RoleReviewer, false)
	return j
}

func (j *journal) submit(t *testing.T) *models.Manuscript {
	t.Helper()
	m, err := j.workflow.Submit(context.Background(), ManuscriptDraft{
		Title:    "On Peer Review",
		Abstract: "A study of review workflows.",
		Keywords: []string{"review, workflow", "publishing"},
		Authors:  "Ada Author, Otto Author",
		File:     testUpload("paper.pdf", "%PDF-1.4 body"),
	}, j.author)
	require.NoError(t, err)
	return m
}

func (j *journal) assign(t *testing.T, id uint, reviewers ...*models.User) *models.Manuscript {
	t.Helper()
	ids := make([]uint, 0, len(reviewers))
	for _, r := range reviewers {
		ids = append(ids, r.UserID)
	}
	m, err := j.workflow.AssignReviewers(context.Background(), id, ids, j.editor)
	require.NoError(t, err)
	return m
}

func (j *journal) review(id uint, reviewer *models.User) (*ReviewResult, error) {
	return j.workflow.SubmitReview(context.Background(), id, reviewer, ReviewInput{
		Recommendation: models.RecommendationMinorRevision,
		Comments:       "Solid work with a few gaps.",
	})
}
