package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 72 * time.Hour

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Identity is what a validated token says about its bearer.
type Identity struct {
	UserID string
	Role   string
}

// GenerateToken creates a signed JWT for a user and role.
// Tokens are normally issued by the identity provider; this is used by
// tooling and tests.
func GenerateToken(secret, userID, role string) (string, error) {
	// 1. Create the claims. "sub" is the standard claim for the user ID.
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  now.Add(TokenTTL).Unix(),
		"iat":  now.Unix(),
	}

	// 2. Sign with HS256 and the shared secret
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token string and returns the
// identity it carries.
func ValidateToken(secret, tokenString string) (Identity, error) {
	// 1. Parse the token, only accepting HMAC signatures.
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, errors.Wrap(ErrInvalidToken, err.Error())
	}

	// 2. Pull the subject and role out of the claims
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, errors.Wrap(ErrInvalidToken, "missing subject claim")
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return Identity{}, errors.Wrap(ErrInvalidToken, "missing role claim")
	}

	return Identity{UserID: sub, Role: role}, nil
}
