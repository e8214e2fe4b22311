package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mahaj/baatcheet/pkg/model"
)

var jwtKey = []byte(secretFromEnv())

func secretFromEnv() string {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return s
	}
	return "my_secret_key" // dev fallback
}

// Claims is the session token payload. Older tokens carry the user id under
// "_id" (the issuer's original spelling), newer ones under "id"; both are
// accepted, preferring "_id".
type Claims struct {
	LegacyID string `json:"_id,omitempty"`
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity resolves the claims to the connection's owner.
func (c *Claims) Identity() model.Identity {
	id := c.LegacyID
	if id == "" {
		id = c.ID
	}
	return model.Identity{ID: id, Name: c.Name}
}

type contextKey string

const UserKey contextKey = "user"

// GenerateToken creates a new JWT session token for a given user.
func GenerateToken(userID, name string) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		LegacyID: userID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateToken parses and validates a JWT session token. Expiry and
// signature failures both come back as errors; callers only need the
// accept/reject decision.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if id := claims.Identity().ID; id == "" {
		return nil, errors.New("token has no subject id")
	}

	return claims, nil
}
