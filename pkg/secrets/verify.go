package secrets

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// VerifySigningRoundTrip signs a short-lived HS256 token with the secret and
// parses it back. It proves the secret is usable end to end without touching
// any real token issuance path.
func VerifySigningRoundTrip(secret string) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "netra-config",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return fmt.Errorf("failed to sign verification token: %w", err)
	}

	parsed, err := jwt.ParseWithClaims(signed, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("failed to verify signed token: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("verification token did not validate")
	}

	return nil
}
