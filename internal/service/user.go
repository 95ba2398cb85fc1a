package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const DefaultInactivity = 48 * time.Hour

// Documents a user must have uploaded before becoming premium.
var RequiredDocuments = []string{"identification", "proof_of_address", "account_statement"}

// DocumentKinds are the upload fields accepted, each at most once.
var DocumentKinds = []string{"profile", "product", "identification", "proof_of_address", "account_statement"}

type DocumentStore interface {
	Save(ctx context.Context, kind, filename string, r io.Reader) (string, error)
}

type Upload struct {
	Kind     string
	Filename string
	Open     func() (io.ReadCloser, error)
}

type UserService struct {
	Repo       *repo.GormRepo
	Notifier   Notifier
	Metrics    *metrics.Business
	Documents  DocumentStore
	Inactivity time.Duration
	Now        func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, p Principal) ([]models.User, error) {
	if err := p.require(access.ActionManageUsers); err != nil {
		return nil, err
	}
	return s.Repo.ListUsers(ctx)
}

func premiumGate(u *models.User, to access.Role) error {
	if to == access.RolePremium && !u.HasDocuments(RequiredDocuments...) {
		return ErrMissingDocuments
	}
	return nil
}

// SetRole is the admin path. Promotion to premium still needs documents.
func (s *UserService) SetRole(ctx context.Context, p Principal, id uuid.UUID, role access.Role) (*models.User, error) {
	if err := p.require(access.ActionManageUsers); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, invalidField("role", "must be one of user, premium, admin")
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := premiumGate(u, role); err != nil {
		return nil, err
	}
	if err := s.Repo.SetRole(ctx, id, role); err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	u.Role = role
	return u, nil
}

// TogglePremium flips user and premium for the caller or, for admins, any
// user. Admin accounts cannot be toggled.
func (s *UserService) TogglePremium(ctx context.Context, p Principal, id uuid.UUID) (*models.User, error) {
	if p.UserID != id && !p.Can(access.ActionManageUsers) {
		return nil, ErrForbidden
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := u.Role.Toggled()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := premiumGate(u, next); err != nil {
		return nil, err
	}
	if err := s.Repo.SetRole(ctx, id, next); err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	u.Role = next
	return u, nil
}

func (s *UserService) DeleteUser(ctx context.Context, p Principal, id uuid.UUID) (*models.User, error) {
	if err := p.require(access.ActionManageUsers); err != nil {
		return nil, err
	}
	u, err := s.Repo.DeleteUser(ctx, id)
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	if s.Notifier != nil {
		s.Notifier.Enqueue(ctx, notify.AccountDeleted(u.Email))
	}
	return u, nil
}

// PurgeInactive deletes every account idle for longer than the inactivity
// window, then queues one email per deleted account. Queueing never undoes
// the deletion.
func (s *UserService) PurgeInactive(ctx context.Context) ([]string, error) {
	l := logging.FromContext(ctx).With("svc", "user.purge")

	window := s.Inactivity
	if window <= 0 {
		window = DefaultInactivity
	}
	cutoff := s.now().Add(-window)

	purged, err := s.Repo.PurgeInactive(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(purged))
	for _, u := range purged {
		emails = append(emails, u.Email)
		if s.Notifier != nil {
			s.Notifier.Enqueue(ctx, notify.AccountPurged(u.Email))
		}
	}
	s.Metrics.RecordPurge(ctx, len(purged))
	l.Info("users_purged", "count", len(purged), "cutoff", cutoff)
	return emails, nil
}

// PurgeInactiveAs is the admin entry point for PurgeInactive.
func (s *UserService) PurgeInactiveAs(ctx context.Context, p Principal) ([]string, error) {
	if err := p.require(access.ActionManageUsers); err != nil {
		return nil, err
	}
	return s.PurgeInactive(ctx)
}

func validKind(kind string) bool {
	for _, k := range DocumentKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// UploadDocuments stores files for the caller (or any user, for admins) and
// records each under its kind. Admins hold no documents of their own.
func (s *UserService) UploadDocuments(ctx context.Context, p Principal, id uuid.UUID, uploads []Upload) (*models.User, error) {
	action := access.ActionUploadDocument
	if p.UserID != id {
		action = access.ActionManageUsers
	}
	if err := p.require(action); err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, invalidField("documents", "at least one file is required")
	}
	seen := map[string]bool{}
	for _, up := range uploads {
		if !validKind(up.Kind) {
			return nil, invalidField(up.Kind, "is not an accepted document")
		}
		if seen[up.Kind] {
			return nil, invalidField(up.Kind, "may be uploaded once per request")
		}
		seen[up.Kind] = true
	}
	if _, err := s.GetUser(ctx, id); err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(uploads))
	for _, up := range uploads {
		ref, err := s.save(ctx, up)
		if err != nil {
			return nil, err
		}
		docs = append(docs, models.Document{Name: up.Kind, Reference: ref})
	}
	if err := s.Repo.AddDocuments(ctx, id, docs); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *UserService) save(ctx context.Context, up Upload) (string, error) {
	rc, err := up.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", up.Kind, err)
	}
	defer rc.Close()
	return s.Documents.Save(ctx, up.Kind, up.Filename, rc)
}
