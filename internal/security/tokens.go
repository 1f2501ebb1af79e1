package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure kinds. Distinct for logging and metrics; the HTTP
// boundary collapses all of them to a generic unauthenticated response.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
)

// AccessClaims is the verified identity carried by an access token. Produced
// only by TokenCodec.VerifyAccess, never mutated, passed explicitly to
// handlers and authorization checks.
type AccessClaims struct {
	UserID    string
	Roles     []string
	IsMaster  bool
	ExpiresAt time.Time
}

type accessJWTClaims struct {
	jwt.RegisteredClaims
	UserID   string   `json:"userId"`
	Roles    []string `json:"roles"`
	IsMaster bool     `json:"isMaster"`
}

type refreshJWTClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// TokenCodec issues and verifies HS256 access and refresh JWTs. The two token
// kinds are signed with distinct secrets so compromise of one cannot forge
// the other.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenCodec returns a TokenCodec. accessSecret and refreshSecret must be
// non-empty and must differ.
func NewTokenCodec(accessSecret, refreshSecret []byte, issuer string, accessTTL, refreshTTL time.Duration) (*TokenCodec, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("security: token secrets must not be empty")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("security: access and refresh secrets must differ")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 168 * time.Hour
	}
	return &TokenCodec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// IssueAccess issues a short-lived access JWT carrying the user's roles and
// master flag. Returns the token string and its expiry.
func (c *TokenCodec) IssueAccess(userID string, roles []string, isMaster bool) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(c.accessTTL)
	claims := accessJWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   userID,
		Roles:    roles,
		IsMaster: isMaster,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	return token, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT for the subject. The raw token
// is returned exactly once; callers must persist only its hash and never log it.
func (c *TokenCodec) IssueRefresh(userID string) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(c.refreshTTL)
	claims := refreshJWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	return token, expiresAt, err
}

// VerifyAccess parses and validates an access token (signature, exp, iss).
// Returns AccessClaims, or ErrTokenExpired / ErrTokenSignature / ErrTokenMalformed.
func (c *TokenCodec) VerifyAccess(tokenString string) (*AccessClaims, error) {
	var claims accessJWTClaims
	if err := c.parse(tokenString, &claims, c.accessSecret); err != nil {
		return nil, err
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	return &AccessClaims{
		UserID:    userID,
		Roles:     claims.Roles,
		IsMaster:  claims.IsMaster,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// VerifyRefresh parses and validates a refresh token (signature, exp, iss).
// Returns the subject and expiry, or ErrTokenExpired / ErrTokenSignature / ErrTokenMalformed.
func (c *TokenCodec) VerifyRefresh(tokenString string) (userID string, expiresAt time.Time, err error) {
	var claims refreshJWTClaims
	if err := c.parse(tokenString, &claims, c.refreshSecret); err != nil {
		return "", time.Time{}, err
	}
	userID = claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrTokenMalformed
	}
	return userID, claims.ExpiresAt.Time, nil
}

func (c *TokenCodec) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return ErrTokenSignature
		default:
			return ErrTokenMalformed
		}
	}
	if !token.Valid {
		return ErrTokenMalformed
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
