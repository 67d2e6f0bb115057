package authutil

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pizza-service/internal/model"
)

// TokenTTL is how long an issued token verifies.
const TokenTTL = 24 * time.Hour

// Claims is the JWT payload; it carries the full user so role checks need no
// database round trip.
type Claims struct {
	UserID int64        `json:"id"`
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	Roles  []model.Role `json:"roles"`
	jwt.RegisteredClaims
}

// User rebuilds the user record from the claims.
func (c *Claims) User() model.User {
	return model.User{ID: c.UserID, Name: c.Name, Email: c.Email, Roles: c.Roles}
}

// Signer issues and validates HS256 tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a signed JWT for the provided user.
func (s *Signer) Issue(user model.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Roles:  user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			// nanosecond precision keeps tokens issued in the same second distinct
			ID: now.Format("20060102150405.000000000"),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses tokenStr, checks the signature and expiry and returns the claims.
func (s *Signer) Validate(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty token")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
