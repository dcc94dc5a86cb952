package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates the token failed signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingSubject indicates the token carries no "sub" claim.
	ErrMissingSubject = errors.New("token missing subject")
)

// TokenVerifier validates a bearer token and produces the caller identity.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}

// JWTVerifier verifies HMAC-signed JWTs. Tokens are minted by the account
// service; this side only checks the signature and reads claims.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for tokens signed with secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify parses and validates token, returning the identity from its
// claims. Expiry and not-before are enforced by the jwt library.
func (v *JWTVerifier) Verify(token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		// Restrict to HMAC so an attacker cannot downgrade to "none"
		// or swap in an asymmetric key.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSubject
	}

	id := &Identity{Subject: sub}
	if verse, ok := claims["verse"].(string); ok {
		id.Verse = verse
	}
	if plan, ok := claims["plan"].(string); ok {
		id.Plan = plan
	}
	return id, nil
}
