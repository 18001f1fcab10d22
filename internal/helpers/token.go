package helpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider  string   `json:"provider"`
		Providers []string `json:"providers"`
		Roles     []string `json:"roles,omitempty"`
	} `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

// TokenVerifier checks Supabase access tokens. Asymmetric tokens are checked
// against the project's JWKS, which is fetched once and refreshed in the
// background; HS256 tokens need the project's JWT secret.
type TokenVerifier struct {
	jwks   *keyfunc.JWKS
	secret []byte
}

func JWKSURL(supabaseURL string) string {
	return strings.TrimRight(supabaseURL, "/") + "/auth/v1/.well-known/jwks.json"
}

func NewTokenVerifier(ctx context.Context, supabaseURL, jwtSecret string, logger *slog.Logger) (*TokenVerifier, error) {
	tv := &TokenVerifier{}
	if jwtSecret != "" {
		tv.secret = []byte(jwtSecret)
	}
	if supabaseURL == "" {
		if tv.secret == nil {
			return nil, errors.New("either SUPABASE_URL or SUPABASE_JWT_SECRET is required to verify tokens")
		}
		return tv, nil
	}

	jwks, err := keyfunc.Get(JWKSURL(supabaseURL), keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("JWKS refresh failed", "error", err)
		},
	})
	if err != nil {
		if tv.secret == nil {
			return nil, fmt.Errorf("failed to load JWKS: %v", err)
		}
		logger.Warn("JWKS unavailable, only HS256 tokens will verify", "error", err)
		return tv, nil
	}
	tv.jwks = jwks
	return tv, nil
}

// NewSecretVerifier verifies HS256 tokens only.
func NewSecretVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (tv *TokenVerifier) keyFor(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		if tv.secret == nil {
			return nil, errors.New("HS256 tokens are not accepted")
		}
		return tv.secret, nil
	}
	if tv.jwks == nil {
		return nil, errors.New("no JWKS loaded")
	}
	return tv.jwks.Keyfunc(token)
}

func (tv *TokenVerifier) Verify(tokenStr string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, tv.keyFor,
		jwt.WithValidMethods([]string{"HS256", "RS256", "ES256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %v", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

func (tv *TokenVerifier) Close() {
	if tv.jwks != nil {
		tv.jwks.EndBackground()
	}
}
