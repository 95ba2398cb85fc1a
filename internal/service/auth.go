package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/repo"
	pkg_hash "github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	DefaultResetTTL   = time.Hour
	minPasswordLength = 6
)

type AuthService struct {
	Repo     *repo.GormRepo
	Issuer   *tokens.Issuer
	Notifier Notifier
	// ResetURL is the link prefix the reset token is appended to.
	ResetURL string
	ResetTTL time.Duration
	Now      func() time.Time
}

type LoginResult struct {
	Pair *tokens.Pair
	User *models.User
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Age       int
	Password  string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email := normalizeEmail(in.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, invalidField("email", "must be a valid address")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, invalidField("first_name", "is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalidField("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	pwHash, err := pkg_hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	user := &models.User{
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Email:          email,
		Age:            in.Age,
		PasswordHash:   pwHash,
		Role:           access.RoleUser,
		LastConnection: s.now(),
	}
	if err := s.Repo.CreateUserWithCart(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, ErrInvalidCredential
	}
	return s.startSession(ctx, user)
}

// LoginExternal signs in an identity vouched for by an OAuth provider,
// creating a password-less account the first time.
func (s *AuthService) LoginExternal(ctx context.Context, email, firstName string) (*LoginResult, error) {
	email = normalizeEmail(email)
	user, err := s.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if firstName == "" {
			firstName = email
		}
		user = &models.User{
			FirstName:      firstName,
			Email:          email,
			Role:           access.RoleUser,
			LastConnection: s.now(),
		}
		if err := s.Repo.CreateUserWithCart(ctx, user); err != nil {
			return nil, storeErr(err, ErrUserNotFound)
		}
	} else if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	now := s.now()
	if err := s.Repo.TouchLastConnection(ctx, user.ID, now); err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	user.LastConnection = now

	cartID, err := s.Repo.EnsureCart(ctx, user.ID)
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	user.CartID = &cartID

	pair, err := s.Issuer.Issue(user.Role.String(), user.Email, user.ID.String(), now)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: pkg_hash.Sha256Hex(pair.RefreshToken),
		JTI:       pair.JTI,
		ExpiresAt: pair.RefreshExp,
	}); err != nil {
		return nil, err
	}
	return &LoginResult{Pair: pair, User: user}, nil
}

// Refresh rotates a refresh token. Each refresh token works once; the role
// and email in the new access token are re-read from the store. A refresh
// counts as activity for the inactivity purge.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.Issuer.RefreshSecret)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "invalid refresh token", "error", err)
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", ErrUnauthorized)
	}
	user, err := s.Repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, err
	}

	now := s.now()
	pair, err := s.Issuer.Issue(user.Role.String(), user.Email, user.ID.String(), now)
	if err != nil {
		return nil, err
	}
	next := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: pkg_hash.Sha256Hex(pair.RefreshToken),
		JTI:       pair.JTI,
		ExpiresAt: pair.RefreshExp,
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, next, now); err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) {
			l.Warn("refresh_failed", "status", 401, "reason", "token expired or revoked")
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}
	if err := s.Repo.TouchLastConnection(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastConnection = now
	return &LoginResult{Pair: pair, User: user}, nil
}

// Logout revokes the refresh token and records the activity.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if refreshToken != "" {
		if err := s.Repo.RevokeRefreshToken(ctx, pkg_hash.Sha256Hex(refreshToken)); err != nil {
			return err
		}
	}
	if userID == uuid.Nil {
		return nil
	}
	if err := s.Repo.TouchLastConnection(ctx, userID, s.now()); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ForgotPassword queues a reset link. Unknown addresses succeed silently so
// the endpoint cannot be used to probe accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		l.Info("reset_requested_unknown_email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	ttl := s.ResetTTL
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	if err := s.Repo.SetResetToken(ctx, user.ID, pkg_hash.Sha256Hex(token), s.now().Add(ttl)); err != nil {
		return err
	}
	if s.Notifier != nil {
		s.Notifier.Enqueue(ctx, notify.PasswordReset(user.Email, s.ResetURL+token))
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if password != confirm {
		return invalidField("confirmPassword", "does not match password")
	}
	if len(password) < minPasswordLength {
		return invalidField("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	user, err := s.Repo.FindByResetToken(ctx, pkg_hash.Sha256Hex(token), s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidField("token", "is invalid or expired")
		}
		return err
	}
	if pkg_hash.CheckPassword(user.PasswordHash, password) {
		return invalidField("password", "must differ from the current password")
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.Repo.ResetPassword(ctx, user.ID, pwHash); err != nil {
		return err
	}
	return s.Repo.RevokeUserTokens(ctx, user.ID)
}
