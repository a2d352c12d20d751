package identity

import (
	"fmt"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	archcrypto "github.com/archon-systems/archon-core/pkg/crypto"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload: identity_id, tenant_id, expiry,
// and scopes, signed by the node's issuing identity.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
}

// TokenIssuer signs and validates bearer tokens using a single
// Ed25519 signing key, the node's own issuing identity.
type TokenIssuer struct {
	signer *archcrypto.Ed25519Signer
	issuer string
}

// NewTokenIssuer builds a TokenIssuer backed by signer, identified as
// issuer in minted tokens' iss claim.
func NewTokenIssuer(signer *archcrypto.Ed25519Signer, issuer string) *TokenIssuer {
	return &TokenIssuer{signer: signer, issuer: issuer}
}

// Issue mints a signed bearer token bound to identityID and tenantID,
// valid for ttl starting now.
func (t *TokenIssuer) Issue(identityID, tenantID string, scopes []string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: tenantID,
		Scopes:   scopes,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(t.signer.PrivateKeyForJWT())
	if err != nil {
		return "", archerr.Wrap(archerr.Cryptographic, "identity.token_sign_failed", "could not sign bearer token", err)
	}
	return signed, nil
}

// Validate parses and validates a bearer token, returning its claims.
func (t *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.signer.PublicKeyBytes(), nil
	})
	if err != nil {
		return nil, archerr.Wrap(archerr.NotAuthorized, "identity.token_invalid", "bearer token failed validation", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, archerr.New(archerr.NotAuthorized, "identity.token_invalid", "bearer token is not valid")
	}
	return claims, nil
}
