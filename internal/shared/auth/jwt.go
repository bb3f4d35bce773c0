package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims represents the identity contained in a JWT.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Kind   string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned by register, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenIssuer signs and verifies access and refresh tokens with separate secrets.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer validates secrets and returns an issuer.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, ErrMissingSecret
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrMissingSecret)
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock overrides the time source. Intended for tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		t.now = now
	}
	return t
}

// IssuePair signs a fresh access and refresh token for the user.
func (t *TokenIssuer) IssuePair(userID, email string) (TokenPair, error) {
	if strings.TrimSpace(userID) == "" {
		return TokenPair{}, errors.New("user id is required")
	}
	access, err := t.sign(Claims{UserID: userID, Email: email, Kind: KindAccess}, t.accessTTL, t.accessSecret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(Claims{UserID: userID, Kind: KindRefresh}, t.refreshTTL, t.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.accessTTL / time.Second),
	}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (t *TokenIssuer) VerifyAccess(token string) (Claims, error) {
	return t.verify(token, t.accessSecret, KindAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (t *TokenIssuer) VerifyRefresh(token string) (Claims, error) {
	return t.verify(token, t.refreshSecret, KindRefresh)
}

func (t *TokenIssuer) sign(claims Claims, ttl time.Duration, secret []byte) (string, error) {
	now := t.now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) verify(token string, secret []byte, kind string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Kind != kind || claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
