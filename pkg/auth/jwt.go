package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

// DefaultTokenLifetime is used by Issue when no expiry is configured.
const DefaultTokenLifetime = 90 * 24 * time.Hour

// JWTVerifier verifies HMAC-signed tokens and resolves the subject against
// the user store, so a token for a deleted account is rejected.
type JWTVerifier struct {
	secret   []byte
	store    storage.Interface
	lifetime time.Duration
}

func NewJWTVerifier(secret string, store storage.Interface) *JWTVerifier {
	return &JWTVerifier{
		secret:   []byte(secret),
		store:    store,
		lifetime: DefaultTokenLifetime,
	}
}

// Verify implements the Verifier interface.
func (v *JWTVerifier) Verify(credential string) (*Identity, error) {
	if credential == "" {
		return nil, NewError("missing credential")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, NewError("invalid token")
	}

	user, err := v.store.Users().FindByID(claims.Subject)
	if err == storage.ErrNotFound {
		return nil, NewError("unknown user")
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to resolve token subject")
	}

	return &Identity{
		UserID:   user.ID,
		Username: user.Username,
	}, nil
}

// Issue signs a new token for the given user ID.
func (v *JWTVerifier) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.lifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}
