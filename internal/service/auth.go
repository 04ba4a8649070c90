package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/personal_cloud/internal/googleauth"
	"github.com/Skotchmaster/personal_cloud/internal/hash"
	"github.com/Skotchmaster/personal_cloud/internal/logging"
	"github.com/Skotchmaster/personal_cloud/internal/models"
	"github.com/Skotchmaster/personal_cloud/internal/repo"
	"github.com/Skotchmaster/personal_cloud/internal/storage"
	"github.com/Skotchmaster/personal_cloud/internal/tokens"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists: the email already belongs to a password account, so a
	// google login must not silently take it over.
	ErrAccountExists  = errors.New("account exists with password")
	ErrUnknownSubject = errors.New("token subject no longer exists")
)

type AuthService struct {
	Repo      *repo.GormRepo
	Tokens    *tokens.Service
	Verifier  googleauth.Verifier
	Allocator *storage.Allocator
}

func (s *AuthService) newUser(username, email string) models.User {
	publicID := uuid.NewString()
	return models.User{
		PublicID:    publicID,
		Username:    username,
		Email:       email,
		StoragePath: s.Allocator.RootFor(publicID),
	}
}

// Register creates a local account. The storage root is allocated atomically
// with the record inside repo.Create.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", username)

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := s.newUser(username, email)
	user.PasswordHash = &pwHash

	if err := s.Repo.Create(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserConflict) {
			l.Warn("register_failed", "reason", "duplicate username or email")
			return nil, err
		}
		l.Error("register_failed", "error", err)
		return nil, err
	}

	l.Info("user_registered", "user_id", user.ID, "public_id", user.PublicID)
	return &user, nil
}

// Login accepts a username or an email as identifier. Lookup miss and wrong
// password collapse to the same error so callers cannot probe which part was
// wrong.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.User, *tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "error", err)
		return nil, nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.Tokens.IssuePair(user.ID)
	if err != nil {
		l.Error("login_failed", "reason", "cannot sign tokens", "error", err)
		return nil, nil, err
	}

	l.Info("user_logged_in", "user_id", user.ID)
	return user, pair, nil
}

// deriveUsername builds a username candidate from the email local part:
// lower-cased, dots and underscores stripped, numeric suffix until unique.
func (s *AuthService) deriveUsername(ctx context.Context, email string) (string, error) {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	base := strings.ToLower(local)
	base = strings.ReplaceAll(base, ".", "")
	base = strings.ReplaceAll(base, "_", "")
	if base == "" {
		base = "user"
	}

	candidate := base
	for counter := 1; ; counter++ {
		taken, err := s.Repo.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}

// GoogleLogin verifies the assertion and resolves or creates the account.
// First-time subjects get a fresh account with no password hash; an email that
// already has a password account is refused with ErrAccountExists.
func (s *AuthService) GoogleLogin(ctx context.Context, rawToken string) (*models.User, *tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.google_login")

	claims, err := s.Verifier.Verify(ctx, rawToken)
	if err != nil {
		l.Warn("google_login_failed", "reason", "invalid assertion", "error", err)
		return nil, nil, err
	}

	user, err := s.Repo.FindByGoogleID(ctx, claims.Subject)
	if err != nil && !errors.Is(err, repo.ErrUserNotFound) {
		return nil, nil, err
	}

	if user == nil {
		if _, err := s.Repo.FindByEmail(ctx, claims.Email); err == nil {
			l.Warn("google_login_refused", "reason", "email already registered with password")
			return nil, nil, ErrAccountExists
		} else if !errors.Is(err, repo.ErrUserNotFound) {
			return nil, nil, err
		}

		username, err := s.deriveUsername(ctx, claims.Email)
		if err != nil {
			return nil, nil, err
		}

		newAccount := s.newUser(username, claims.Email)
		googleID := claims.Subject
		newAccount.GoogleID = &googleID

		switch err := s.Repo.Create(ctx, &newAccount); {
		case err == nil:
			l.Info("google_user_created", "user_id", newAccount.ID, "username", username)
			user = &newAccount
		case errors.Is(err, repo.ErrUserConflict):
			// lost a race with another first login for the same subject:
			// the winner's account is the one to use
			winner, lookupErr := s.Repo.FindByGoogleID(ctx, claims.Subject)
			if lookupErr != nil {
				if errors.Is(lookupErr, repo.ErrUserNotFound) {
					// the conflict was on the email instead
					l.Warn("google_login_refused", "reason", "email already registered with password")
					return nil, nil, ErrAccountExists
				}
				return nil, nil, lookupErr
			}
			user = winner
		default:
			l.Error("google_login_failed", "reason", "cannot create user", "error", err)
			return nil, nil, err
		}
	}

	pair, err := s.Tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	l.Info("google_user_logged_in", "user_id", user.ID)
	return user, pair, nil
}

// Refresh verifies the refresh token and mints a new access token only; the
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	userID, err := s.Tokens.Parse(refreshToken, tokens.TypeRefresh)
	if err != nil {
		return "", time.Time{}, err
	}

	if _, err := s.Repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return "", time.Time{}, ErrUnknownSubject
		}
		return "", time.Time{}, err
	}

	return s.Tokens.IssueAccess(userID)
}
