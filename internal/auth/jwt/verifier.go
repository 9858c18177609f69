package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	gojwt "github.com/golang-jwt/jwt/v4"
	"github.com/smallbiznis/spacebook/internal/auth/domain"
	"github.com/smallbiznis/spacebook/internal/config"
)

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Role string `json:"role,omitempty"`
	gojwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(cfg config.Config) (domain.Verifier, error) {
	return New(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
}

func New(secret, issuer string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	return &Verifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}, nil
}

func (v *Verifier) Verify(_ context.Context, rawToken string) (domain.Credential, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.Credential{}, domain.ErrMissingCredential
	}

	claims := &Claims{}
	token, err := gojwt.ParseWithClaims(rawToken, claims, func(t *gojwt.Token) (interface{}, error) {
		if t.Method != gojwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Credential{}, domain.ErrInvalidCredential
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return domain.Credential{}, domain.ErrInvalidCredential
	}
	if claims.ExpiresAt == nil {
		return domain.Credential{}, domain.ErrInvalidCredential
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(claims.Subject))
	if err != nil || userID <= 0 {
		return domain.Credential{}, domain.ErrInvalidCredential
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Credential{}, domain.ErrInvalidCredential
	}

	return domain.Credential{UserID: userID, Role: role}, nil
}

// Sign issues a token for cred. It exists for local tooling and tests; the
// service itself never mints credentials.
func (v *Verifier) Sign(cred domain.Credential, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(cred.Role),
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   cred.UserID.String(),
			Issuer:    v.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(v.secret)
}
