package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify a resident on every authenticated request.
type Claims struct {
	ResidentID int64  `json:"rid"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

const issuer = "treeplant-api"

func IssueToken(secret []byte, claims Claims) (string, error) {
	if claims.ResidentID <= 0 || claims.ID == "" || claims.ExpiresAt == nil {
		return "", fmt.Errorf("issue token: %w", ErrInvalidToken)
	}
	claims.Subject = strconv.FormatInt(claims.ResidentID, 10)
	claims.Issuer = issuer

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func ParseToken(secret []byte, token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.ResidentID <= 0 || claims.ID == "" || claims.Subject != strconv.FormatInt(claims.ResidentID, 10) {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}
