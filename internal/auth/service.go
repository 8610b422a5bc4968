package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/notify"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/utils"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// Service implements registration, login, profile and password reset.
type Service struct {
	store     Store
	hasher    PasswordHasher
	jwt       *JWTService
	sink      notify.Sink
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the account service. publicURL is the dashboard base URL
// used in reset links.
func NewService(store Store, hasher PasswordHasher, jwt *JWTService, sink notify.Sink, publicURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = notify.Discard
	}
	return &Service{
		store:     store,
		hasher:    hasher,
		jwt:       jwt,
		sink:      sink,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterInput is a self-service sign-up.
type RegisterInput struct {
	Email    string
	Password string
	FullName *string
}

// Token is an issued access token.
type Token struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresIn   int               `json:"expires_in"`
	User        models.UserPublic `json:"user"`
}

// ProfileUpdate changes the caller's own account. Nil fields are left alone.
type ProfileUpdate struct {
	Email    *string
	Password *string
	FullName *string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(p string) error {
	if len(p) < MinPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// Register creates an account. The first account ever becomes an ADMIN
// superuser; every later one starts as an unassigned VIEWER.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email already registered")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}
	u := &models.User{
		Email:    email,
		Password: hash,
		FullName: in.FullName,
		IsActive: true,
	}
	err = s.store.RegisterUser(ctx, u, func(u *models.User, existing int) {
		if existing == 0 {
			u.Role = models.RoleAdmin
			u.IsSuperuser = true
			return
		}
		u.Role = models.RoleViewer
		u.IsSuperuser = false
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}
	if u.IsSuperuser {
		s.logger.Info("bootstrap superuser registered", zap.String("user_id", u.ID.String()))
	}
	return u, nil
}

// Login exchanges credentials for an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorized("incorrect email or password")
		}
		return nil, err
	}
	if !s.hasher.Verify(password, u.Password) {
		return nil, apperr.Unauthorized("incorrect email or password")
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("inactive user")
	}
	return s.issue(u)
}

func (s *Service) issue(u *models.User) (*Token, error) {
	token, err := s.jwt.Generate(u.ID, u.Email)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	return &Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.jwt.ExpiresIn().Seconds()),
		User:        u.ToPublic(),
	}, nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, p policy.Principal) (*models.User, error) {
	if _, err := policy.Authorize(p, policy.ActionRead, policy.ResourceProfile, nil); err != nil {
		return nil, err
	}
	return s.store.GetUserByID(ctx, p.UserID)
}

// UpdateMe changes the caller's email, password or full name.
func (s *Service) UpdateMe(ctx context.Context, p policy.Principal, in ProfileUpdate) (*models.User, error) {
	if _, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceProfile, nil); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, apperr.Validation("email is required")
		}
		if email != u.Email {
			if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
				return nil, apperr.Conflict("email already registered")
			} else if !errors.Is(err, apperr.ErrNotFound) {
				return nil, err
			}
			u.Email = email
		}
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, apperr.Internal("failed to hash password", err)
		}
		u.Password = hash
	}
	if in.FullName != nil {
		u.FullName = in.FullName
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}
	return u, nil
}

// RequestPasswordReset issues a reset token and mails its link. Unknown or
// inactive addresses get the same silent success.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Debug("password reset for unknown email")
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}

	secret, err := utils.NewToken(32)
	if err != nil {
		return apperr.Internal("failed to generate reset token", err)
	}
	t := &models.PasswordResetToken{
		UserID:    u.ID,
		Token:     secret,
		ExpiresAt: s.now().Add(models.PasswordResetTTL),
	}
	if err := s.store.CreateResetToken(ctx, t); err != nil {
		return err
	}

	link := s.publicURL + "/reset-password?token=" + secret
	s.sink.Send(ctx, notify.Event{
		Type:           notify.EventPasswordReset,
		OrganizationID: u.OrganizationID,
		Recipient:      u.Email,
		Subject:        "Reset your Statio password",
		Body: "We received a request to reset your password.\n\n" +
			"Open the link below within 24 hours to choose a new one:\n" + link + "\n\n" +
			"If you did not ask for this, you can ignore this email.",
	})
	return nil
}

// ResetPassword sets a new password using an unused, unexpired token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	t, err := s.store.GetResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Validation("invalid or expired reset token")
		}
		return err
	}
	if t.Used || t.Expired(s.now()) {
		return apperr.Validation("invalid or expired reset token")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	if err := s.store.ConsumeResetToken(ctx, t.ID, t.UserID, hash); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("user_id", t.UserID.String()))
	return nil
}
