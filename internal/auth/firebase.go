package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const firebaseIssuerPrefix = "https://securetoken.google.com/"

// Claims are the Firebase ID token claims the service reads.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates a bearer credential and returns its claims.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*Claims, error)
}

// KeySource resolves the RSA public key for a key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// FirebaseVerifier checks Firebase ID tokens locally against Google's
// published signing keys.
type FirebaseVerifier struct {
	keys   KeySource
	parser *jwt.Parser
}

// NewFirebaseVerifier creates a verifier for tokens issued to projectID.
func NewFirebaseVerifier(projectID string, keys KeySource) *FirebaseVerifier {
	return &FirebaseVerifier{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithAudience(projectID),
			jwt.WithIssuer(firebaseIssuerPrefix+projectID),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// VerifyIDToken parses and validates a Firebase ID token string.
func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("token for %s has no email claim", claims.Subject)
	}
	return claims, nil
}
