// Package token verifies the access tokens minted by the institution's
// identity provider. The core never sees credentials; it trusts the verified
// {actor, role} pair this package extracts.
package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
	"medleave/pkg/requestcontext"
)

// Claims represents the JWT claims carried by institution access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens.
type Verifier struct {
	signingKey []byte
}

func NewVerifier(signingKey string) *Verifier {
	return &Verifier{signingKey: []byte(signingKey)}
}

// Verify parses and validates the token, returning the trusted actor identity.
func (v *Verifier) Verify(tokenString string) (id.ActorID, requestcontext.Role, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	actorID, err := id.ParseActorID(claims.UserID)
	if err != nil {
		return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	role := requestcontext.Role(claims.Role)
	switch role {
	case requestcontext.RoleStudent, requestcontext.RoleStaff:
	default:
		return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "unknown role")
	}

	return actorID, role, nil
}
