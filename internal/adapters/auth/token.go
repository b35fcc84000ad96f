package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eventregistration/internal/domain"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Email     string   `json:"email"`
	Superuser bool     `json:"superuser"`
	Member    bool     `json:"member"`
	GroupIDs  []string `json:"group_ids"`
}

type JWTVerifier struct {
	secret []byte
	expiry time.Duration
}

// NewJWTVerifier returns an IdentityVerifier for HS256-signed tokens carrying
// membership and group claims. The expiry is applied to tokens it issues.
func NewJWTVerifier(secret string, expiry time.Duration) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), expiry: expiry}
}

// Issue signs a token for the given identity. Used by tooling and tests; in
// production tokens come from the surrounding platform's identity service.
func (v *JWTVerifier) Issue(ident domain.Identity) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.expiry)),
		},
		Email:     ident.Email,
		Superuser: ident.Superuser,
		Member:    ident.Member,
		GroupIDs:  ident.GroupIDs,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify parses and validates a token and resolves the identity it carries.
func (v *JWTVerifier) Verify(tokenString string) (domain.Identity, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return domain.Identity{}, errors.New("invalid token")
	}
	return domain.Identity{
		UserID:        claims.Subject,
		Email:         claims.Email,
		Authenticated: true,
		Superuser:     claims.Superuser,
		Member:        claims.Member,
		GroupIDs:      claims.GroupIDs,
	}, nil
}
