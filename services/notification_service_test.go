package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manuscript-review-api/models"
)

func TestNotifyTruncatesAndToleratesDanglingTarget(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil)
	ctx := context.Background()

	long := strings.Repeat("é", models.MaxNotificationMessageLength+100)
	n, err := svc.Notify(ctx, 4242, Message{Title: "Hello", Body: long})
	require.NoError(t, err)
	assert.Equal(t, uint(4242), n.UserID)
	assert.Equal(t, models.NotificationInfo, n.Type)
	assert.Equal(t, models.MaxNotificationMessageLength, len([]rune(n.Message)))
	assert.False(t, n.IsRead)
}

func TestNotifyAll(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil)
	ctx := context.Background()
	id := uint(7)

	delivered, err := svc.NotifyAll(ctx, []uint{1, 2, 3, 2, 1}, Message{
		Title:        "Batch",
		Body:         "body",
		Type:         models.NotificationWarning,
		ManuscriptID: &id,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)
	assert.Equal(t, int64(3), countRows(t, db, &models.Notification{}))

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	for _, r := range rows {
		require.NotNil(t, r.RelatedManuscriptID)
		assert.Equal(t, id, *r.RelatedManuscriptID)
		assert.Equal(t, models.NotificationWarning, r.Type)
	}

	delivered, err = svc.NotifyAll(ctx, nil, Message{Title: "none"})
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestNotificationListing(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil)
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for i := 0; i < 25; i++ {
		_, err := svc.Notify(ctx, 1, Message{Title: "n", Body: string(rune('a' + i))})
		require.NoError(t, err)
	}
	_, err := svc.Notify(ctx, 2, Message{Title: "someone else"})
	require.NoError(t, err)

	page, err := svc.List(ctx, 1, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, int64(25), page.UnreadCount)
	assert.Equal(t, 20, page.Limit)
	require.Len(t, page.Items, 20)
	assert.Equal(t, "y", page.Items[0].Message, "newest first")

	tail, err := svc.List(ctx, 1, ListOptions{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, tail.Items, 5)
	assert.Equal(t, "a", tail.Items[4].Message)

	capped, err := svc.List(ctx, 1, ListOptions{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 20, capped.Limit)

	updated, err := svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(25), updated)

	again, err := svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, again)

	_, err = svc.Notify(ctx, 1, Message{Title: "fresh"})
	require.NoError(t, err)

	unread, err := svc.List(ctx, 1, ListOptions{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread.Total)
	assert.Equal(t, int64(1), unread.UnreadCount)
	require.Len(t, unread.Items, 1)
	assert.Equal(t, "fresh", unread.Items[0].Title)

	count, err := svc.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNotificationOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil)
	ctx := context.Background()

	mine, err := svc.Notify(ctx, 1, Message{Title: "mine"})
	require.NoError(t, err)
	theirs, err := svc.Notify(ctx, 2, Message{Title: "theirs"})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, theirs.NotificationID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.MarkRead(ctx, 9999, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	read, err := svc.MarkRead(ctx, mine.NotificationID, 1)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.UpdateAt)

	err = svc.Delete(ctx, theirs.NotificationID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(2), countRows(t, db, &models.Notification{}))

	require.NoError(t, svc.Delete(ctx, mine.NotificationID, 1))
	err = svc.Delete(ctx, mine.NotificationID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := svc.DeleteAll(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = svc.DeleteAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Zero(t, countRows(t, db, &models.Notification{}))
}

func TestNotificationEmailMirror(t *testing.T) {
	db := newTestDB(t)
	active := seedUser(t, db, "Ada Author", models.RoleAuthor, true)
	inactive := seedUser(t, db, "Ivy Editor", models.RoleEditor, false)

	mailer := &fakeMailer{}
	svc := NewNotificationService(db, mailer).WithLinkBase("https://review.example.org/")
	id := uint(12)

	delivered, err := svc.NotifyAll(context.Background(), []uint{active.UserID, inactive.UserID}, Message{
		Title:        "Manuscript submitted",
		Body:         "Your manuscript <b>X</b> was received.",
		ManuscriptID: &id,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	svc.WaitForMail()
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{active.Email}, sent[0].To)
	assert.Equal(t, "Manuscript submitted", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "Dear Ada Author,")
	assert.Contains(t, sent[0].HTML, "&lt;b&gt;X&lt;/b&gt;")
	assert.Contains(t, sent[0].HTML, "https://review.example.org/manuscripts/12")
}

func TestBuildFormalEmailHTML(t *testing.T) {
	html := buildFormalEmailHTML("Subject", "", "line one\nline two", "")
	assert.Contains(t, html, "Dear Colleague,")
	assert.Contains(t, html, "line one<br />line two")
	assert.NotContains(t, html, "View manuscript")
}
