package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ml4ch/CoSESWeather/internal/services"
)

// StationClaims identify the station server and agent on the station-only routes.
type StationClaims struct {
	StationID string `json:"station_id"`
	jwt.RegisteredClaims
}

// GenerateStationToken signs an HS256 station token. A zero ttl issues a token without
// expiry, which is what long-running station processes are provisioned with.
func GenerateStationToken(stationID, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("station secret is not configured")
	}
	now := time.Now()
	claims := &StationClaims{
		StationID: stationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  stationID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseStationToken validates the bearer token of c and returns its claims.
func ParseStationToken(c *fiber.Ctx, secret string) (*StationClaims, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: station secret is not configured", services.ErrAuthenticationFailed)
	}
	auth := c.Get(fiber.HeaderAuthorization)
	tokenStr := strings.TrimPrefix(auth, "Bearer ")
	if auth == "" || tokenStr == auth {
		return nil, fmt.Errorf("%w: missing station token", services.ErrAuthenticationFailed)
	}

	claims := &StationClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired station token", services.ErrAuthenticationFailed)
	}
	return claims, nil
}

// StationProtected admits requests carrying a valid station token.
func StationProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ParseStationToken(c, secret)
		if err != nil {
			return err
		}
		c.Locals(StationKey, claims.StationID)
		return c.Next()
	}
}
