package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"erp-suite/backend/internal/security"
	sessiondomain "erp-suite/backend/internal/session/domain"
	sessionrepo "erp-suite/backend/internal/session/repository"
	"erp-suite/backend/internal/telemetry"
	userdomain "erp-suite/backend/internal/user/domain"
)

// Sentinel errors for the auth service; handlers map them to HTTP statuses.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrRefreshInvalid         = errors.New("invalid or expired refresh token")
)

// AuthResult holds the outcome of Register (user only), Login, or Refresh.
type AuthResult struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	User             *userdomain.User
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User, roleIDs []string) error
}

// SessionRepo is the minimal refresh-token repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, r *sessiondomain.RefreshRecord) error
	FindMatchingActive(ctx context.Context, userID, rawToken string) (*sessiondomain.RefreshRecord, error)
	Rotate(ctx context.Context, oldID string, successor *sessiondomain.RefreshRecord) error
	Revoke(ctx context.Context, id string) (bool, error)
}

// AuthService implements register, login, refresh with rotation, logout, and access validation.
type AuthService struct {
	users    UserRepo
	sessions SessionRepo
	hasher   *security.Hasher
	tokens   *security.TokenCodec
	emitter  telemetry.EventEmitter
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserRepo, sessions SessionRepo, hasher *security.Hasher, tokens *security.TokenCodec, emitter telemetry.EventEmitter) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		emitter:  emitter,
	}
}

// Register creates a user with the given name, email, and password.
// Returns AuthResult with User only; the caller must Login to get tokens.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user, nil); err != nil {
		return nil, err
	}
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type:      telemetry.EventRegister,
		UserID:    user.ID,
		CreatedAt: now,
	})
	return &AuthResult{User: user}, nil
}

// Login authenticates with email/password, stores a hashed refresh record, and returns both tokens.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
			Type:      telemetry.EventLoginFailure,
			UserID:    user.ID,
			CreatedAt: time.Now().UTC(),
		})
		return nil, ErrInvalidCredentials
	}
	refreshToken, refreshExp, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(user.ID, user.Roles, user.IsMaster)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rec := &sessiondomain.RefreshRecord{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: security.HashRefreshToken(refreshToken),
		IssuedAt:  now,
		ExpiresAt: refreshExp,
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return nil, err
	}
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type:      telemetry.EventLoginSuccess,
		UserID:    user.ID,
		SessionID: rec.ID,
		CreatedAt: now,
	})
	return &AuthResult{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		User:             user,
	}, nil
}

// Refresh validates the presented refresh token, rotates its record, and returns a new token pair.
// Rotation revokes the old record and inserts the successor in one transaction; only one of N
// concurrent calls presenting the same token wins, the rest get ErrRefreshInvalid.
// A token that verifies but matches no active record was already rotated, revoked, or expired;
// it is denied and the reuse is recorded for audit.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrRefreshInvalid
	}
	userID, _, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrRefreshInvalid
	}
	current, err := s.sessions.FindMatchingActive(ctx, userID, refreshToken)
	if err != nil {
		return nil, err
	}
	if current == nil {
		telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
			Type:      telemetry.EventRefreshReuse,
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
		})
		return nil, ErrRefreshInvalid
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrRefreshInvalid
	}
	newRefresh, refreshExp, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	successor := &sessiondomain.RefreshRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: security.HashRefreshToken(newRefresh),
		IssuedAt:  now,
		ExpiresAt: refreshExp,
	}
	if err := s.sessions.Rotate(ctx, current.ID, successor); err != nil {
		if errors.Is(err, sessionrepo.ErrNotActive) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(userID, user.Roles, user.IsMaster)
	if err != nil {
		return nil, err
	}
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type:      telemetry.EventRefreshRotated,
		UserID:    userID,
		SessionID: successor.ID,
		CreatedAt: now,
	})
	return &AuthResult{
		AccessToken:      accessToken,
		RefreshToken:     newRefresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		User:             user,
	}, nil
}

// Logout revokes the refresh record matching the presented token. It is idempotent:
// malformed, expired, unknown, and already-revoked tokens all return nil.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	userID, _, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}
	current, err := s.sessions.FindMatchingActive(ctx, userID, refreshToken)
	if err != nil || current == nil {
		return nil
	}
	if _, err := s.sessions.Revoke(ctx, current.ID); err != nil {
		return nil
	}
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		Type:      telemetry.EventLogout,
		UserID:    userID,
		SessionID: current.ID,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Validate verifies an access token and returns its claims. No repository access;
// revoking a refresh lineage does not invalidate access tokens already issued.
func (s *AuthService) Validate(tokenString string) (*security.AccessClaims, error) {
	return s.tokens.VerifyAccess(tokenString)
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
