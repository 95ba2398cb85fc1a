package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
)

type memDocs struct{ saved []string }

func (m *memDocs) Save(_ context.Context, kind, filename string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	ref := kind + "/" + filename
	m.saved = append(m.saved, ref)
	return ref, nil
}

func upload(kind string) Upload {
	return Upload{Kind: kind, Filename: kind + ".pdf", Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("scan")), nil
	}}
}

func TestTogglePremium_RequiresAllDocuments(t *testing.T) {
	r := newTestRepo(t)
	docs := &memDocs{}
	svc := &UserService{Repo: r, Documents: docs}
	ctx := context.Background()
	u, me := mustUser(t, r, "a@example.com", access.RoleUser)

	_, err := svc.TogglePremium(ctx, me, u.ID)
	assert.ErrorIs(t, err, ErrMissingDocuments)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UploadDocuments(ctx, me, u.ID, []Upload{upload("identification"), upload("proof_of_address")})
	require.NoError(t, err)
	_, err = svc.TogglePremium(ctx, me, u.ID)
	assert.ErrorIs(t, err, ErrMissingDocuments)

	_, err = svc.UploadDocuments(ctx, me, u.ID, []Upload{upload("account_statement")})
	require.NoError(t, err)
	got, err := svc.TogglePremium(ctx, me, u.ID)
	require.NoError(t, err)
	assert.Equal(t, access.RolePremium, got.Role)

	got, err = svc.TogglePremium(ctx, me, u.ID)
	require.NoError(t, err)
	assert.Equal(t, access.RoleUser, got.Role)
	assert.Len(t, docs.saved, 3)
}

func TestTogglePremium_Permissions(t *testing.T) {
	r := newTestRepo(t)
	svc := &UserService{Repo: r}
	ctx := context.Background()
	target, _ := mustUser(t, r, "t@example.com", access.RoleUser)
	_, stranger := mustUser(t, r, "s@example.com", access.RoleUser)
	admin, adminP := mustUser(t, r, "admin@example.com", access.RoleAdmin)

	_, err := svc.TogglePremium(ctx, stranger, target.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.TogglePremium(ctx, adminP, admin.ID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUploadDocuments_Permissions(t *testing.T) {
	r := newTestRepo(t)
	docs := &memDocs{}
	svc := &UserService{Repo: r, Documents: docs}
	ctx := context.Background()
	target, _ := mustUser(t, r, "t@example.com", access.RoleUser)
	_, stranger := mustUser(t, r, "s@example.com", access.RolePremium)
	admin, adminP := mustUser(t, r, "admin@example.com", access.RoleAdmin)

	_, err := svc.UploadDocuments(ctx, stranger, target.ID, []Upload{upload("profile")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UploadDocuments(ctx, adminP, admin.ID, []Upload{upload("profile")})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.UploadDocuments(ctx, adminP, target.ID, []Upload{upload("identification")})
	require.NoError(t, err)
	assert.True(t, got.HasDocuments("identification"))
	assert.Len(t, docs.saved, 1)
}

func TestUploadDocuments_Validation(t *testing.T) {
	r := newTestRepo(t)
	svc := &UserService{Repo: r, Documents: &memDocs{}}
	ctx := context.Background()
	u, me := mustUser(t, r, "a@example.com", access.RoleUser)

	_, err := svc.UploadDocuments(ctx, me, u.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UploadDocuments(ctx, me, u.ID, []Upload{upload("passport")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UploadDocuments(ctx, me, u.ID, []Upload{upload("profile"), upload("profile")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetRole_AdminOnlyAndGated(t *testing.T) {
	r := newTestRepo(t)
	svc := &UserService{Repo: r}
	ctx := context.Background()
	u, me := mustUser(t, r, "a@example.com", access.RoleUser)
	_, admin := mustUser(t, r, "admin@example.com", access.RoleAdmin)

	_, err := svc.SetRole(ctx, me, u.ID, access.RolePremium)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.SetRole(ctx, admin, u.ID, access.RolePremium)
	assert.ErrorIs(t, err, ErrMissingDocuments)

	_, err = svc.SetRole(ctx, admin, u.ID, access.Role("root"))
	assert.ErrorIs(t, err, ErrValidation)

	got, err := svc.SetRole(ctx, admin, u.ID, access.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, got.Role)
}

func TestPurgeInactive_DeletesStrictlyOlderAndNotifiesEach(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	notifier := &recordingNotifier{}
	svc := &UserService{Repo: r, Notifier: notifier, Now: func() time.Time { return now }}

	cutoff := now.Add(-48 * time.Hour)
	for email, last := range map[string]time.Time{
		"stale1@example.com": cutoff.Add(-time.Minute),
		"stale2@example.com": cutoff.Add(-72 * time.Hour),
		"edge@example.com":   cutoff,
		"fresh@example.com":  now.Add(-time.Hour),
	} {
		u := &models.User{FirstName: "x", Email: email, LastConnection: last}
		require.NoError(t, r.CreateUserWithCart(ctx, u))
	}

	emails, err := svc.PurgeInactive(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"stale1@example.com", "stale2@example.com"}, emails)
	assert.ElementsMatch(t, emails, notifier.recipients())

	users, err := r.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

type brokenQueue struct{ calls int }

func (q *brokenQueue) Publish(context.Context, notify.Intent) error {
	q.calls++
	return errors.New("smtp relay down")
}

func TestPurgeInactive_QueueFailuresKeepDeletion(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	q := &brokenQueue{}
	svc := &UserService{Repo: r, Notifier: notify.NewNotifier(q)}

	old := time.Now().UTC().Add(-100 * time.Hour)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, r.CreateUserWithCart(ctx, &models.User{FirstName: "x", Email: email, LastConnection: old}))
	}

	emails, err := svc.PurgeInactive(ctx)
	require.NoError(t, err)
	assert.Len(t, emails, 3)
	assert.Equal(t, 3, q.calls)

	users, err := r.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestDeleteUser_NotifiesAndRequiresAdmin(t *testing.T) {
	r := newTestRepo(t)
	notifier := &recordingNotifier{}
	svc := &UserService{Repo: r, Notifier: notifier}
	ctx := context.Background()
	u, me := mustUser(t, r, "a@example.com", access.RoleUser)
	_, admin := mustUser(t, r, "admin@example.com", access.RoleAdmin)

	_, err := svc.DeleteUser(ctx, me, u.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.DeleteUser(ctx, admin, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, notifier.recipients())

	_, err = svc.DeleteUser(ctx, admin, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
