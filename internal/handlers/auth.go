package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ml4ch/CoSESWeather/internal/middleware"
)

var validate = validator.New()

// minSecretLength applies to secrets set through the API.
const minSecretLength = 8

type AuthHandler struct {
	accounts AccountService
}

func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	identity, secret, err := middleware.CredentialsFrom(c)
	if err != nil {
		return err
	}
	if identity == "" || secret == "" {
		return badRequest(errors.New("identity and secret are required"))
	}

	result, err := h.accounts.Login(c.UserContext(), identity, secret)
	if err != nil {
		return err
	}
	return success(c, "Login successful", result)
}

type changePasswordRequest struct {
	NewSecret string `json:"new_secret" form:"new_secret"`
	PPassNew  string `json:"p_pass_new" form:"p_pass_new"`
}

func (r *changePasswordRequest) secret() string {
	if r.NewSecret != "" {
		return r.NewSecret
	}
	return r.PPassNew
}

// ChangePassword rotates the caller's own secret. The current secret travels as the
// request credentials and is re-verified by the account service.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(errors.New("invalid request body"))
	}
	newSecret := req.secret()
	if err := validate.Var(newSecret, "required,min=8"); err != nil {
		return badRequest(errors.New("new secret must be at least 8 characters"))
	}

	identity, secret, err := middleware.CredentialsFrom(c)
	if err != nil {
		return err
	}
	if err := h.accounts.ChangeOwnPassword(c.UserContext(), identity, secret, newSecret); err != nil {
		return err
	}
	return success(c, "Password changed successfully", nil)
}
