package middleware

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ml4ch/CoSESWeather/internal/services"
)

const (
	IdentityKey = "identity"
	StationKey  = "station"
)

// Verifier is the credential check the gate runs.
type Verifier interface {
	Verify(ctx context.Context, identity, secret string, elevated bool) (bool, error)
}

type credentialBody struct {
	Identity string `json:"identity" form:"identity"`
	Secret   string `json:"secret" form:"secret"`
	PUser    string `json:"p_user" form:"p_user"`
	PPass    string `json:"p_pass" form:"p_pass"`
}

// CredentialsFrom reads identity and secret from HTTP Basic auth, falling back to the
// request body (identity/secret, or the older p_user/p_pass fields). A body that does not
// parse is an invalid request.
func CredentialsFrom(c *fiber.Ctx) (identity, secret string, err error) {
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Basic ") {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
		if err == nil {
			if user, pass, ok := strings.Cut(string(raw), ":"); ok {
				return user, pass, nil
			}
		}
	}

	var body credentialBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return "", "", fmt.Errorf("%w: invalid request body", services.ErrInvalidRequest)
		}
	}
	identity, secret = body.Identity, body.Secret
	if identity == "" {
		identity, secret = body.PUser, body.PPass
	}
	return identity, secret, nil
}

// Authorize runs the credential check for c and stores the identity on success.
func Authorize(c *fiber.Ctx, verifier Verifier, elevated bool) error {
	identity, secret, err := CredentialsFrom(c)
	if err != nil {
		return err
	}
	ok, err := verifier.Verify(c.UserContext(), identity, secret, elevated)
	if err != nil {
		return err
	}
	if !ok {
		return services.ErrAuthenticationFailed
	}
	c.Locals(IdentityKey, identity)
	return nil
}

// Gate admits requests whose credentials verify; elevated also requires an admin account.
func Gate(verifier Verifier, elevated bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := Authorize(c, verifier, elevated); err != nil {
			return err
		}
		return c.Next()
	}
}

// Identity returns the verified identity stored by Gate.
func Identity(c *fiber.Ctx) string {
	identity, _ := c.Locals(IdentityKey).(string)
	return identity
}
