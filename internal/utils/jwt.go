package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/tesfa/internal/models"
)

// SessionClaims carry the authenticated identity inside the session token.
// The token is self-contained: the access gate never re-reads the database.
// It never includes the password hash.
type SessionClaims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	RoleID         uint   `json:"role_id"`
	DonationAmount string `json:"donation_amount"`
	jwt.RegisteredClaims
}

// GenerateToken signs a session token for the user, valid for ttl.
func GenerateToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	claims := &SessionClaims{
		UserID:         user.ID.String(),
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		RoleID:         user.RoleID,
		DonationAmount: user.DonationAmount.StringFixed(2),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a session token and returns its claims.
func ParseToken(secret, tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}
