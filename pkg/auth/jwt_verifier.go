package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier answers whether a token is valid and, if so, which subject it
// belongs to.
type TokenVerifier interface {
	VerifyToken(token string) (bool, string)
}

// AdminVerifier additionally reports whether the token carries the admin role.
type AdminVerifier interface {
	VerifyAdmin(token string) (ok bool, admin bool, subject string)
}

var ErrInvalidToken = errors.New("invalid token")

const RoleAdmin = "admin"

type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) VerifyToken(token string) (bool, string) {
	subject, err := v.Parse(token)
	if err != nil {
		return false, ""
	}
	return true, subject
}

func (v *JWTVerifier) VerifyAdmin(token string) (bool, bool, string) {
	claims, subject, err := v.parse(token)
	if err != nil {
		return false, false, ""
	}
	role, _ := claims["role"].(string)
	return true, role == RoleAdmin, subject
}

// Parse validates an HS256 token and returns its user_id claim. A "Bearer "
// prefix is tolerated.
func (v *JWTVerifier) Parse(token string) (string, error) {
	_, subject, err := v.parse(token)
	return subject, err
}

func (v *JWTVerifier) parse(token string) (jwt.MapClaims, string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" || len(v.secret) == 0 {
		return nil, "", ErrInvalidToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, "", ErrInvalidToken
	}
	subject, ok := claims["user_id"].(string)
	if !ok || subject == "" {
		return nil, "", ErrInvalidToken
	}
	return claims, subject, nil
}

// Sign issues a token for subject. Used by tooling and tests.
func (v *JWTVerifier) Sign(subject string, claims jwt.MapClaims) (string, error) {
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	claims["user_id"] = subject
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
