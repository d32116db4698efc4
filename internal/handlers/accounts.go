package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ml4ch/CoSESWeather/internal/middleware"
	"github.com/ml4ch/CoSESWeather/internal/services"
)

type AccountHandler struct {
	accounts AccountService
}

func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// accountRequest carries both the current field names and the older acc_* ones.
type accountRequest struct {
	Name   string `json:"name" form:"name"`
	Email  string `json:"email" form:"email"`
	Secret string `json:"new_secret" form:"new_secret"`
	Admin  *bool  `json:"admin" form:"admin"`
	Reason string `json:"reason" form:"reason"`

	AccUser  string `json:"acc_user" form:"acc_user"`
	AccEmail string `json:"acc_email" form:"acc_email"`
	AccPass  string `json:"acc_pass" form:"acc_pass"`
	AccAdmin *bool  `json:"acc_admin" form:"acc_admin"`
	AReason  string `json:"a_reason" form:"a_reason"`
}

type normalizedAccount struct {
	Name   string
	Email  string `validate:"required,email"`
	Secret string
	Admin  *bool
	Reason string
}

func parseAccountRequest(c *fiber.Ctx) (normalizedAccount, error) {
	var req accountRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return normalizedAccount{}, badRequest(errors.New("invalid request body"))
		}
	}
	out := normalizedAccount{
		Name:   firstNonEmpty(req.Name, req.AccUser),
		Email:  firstNonEmpty(c.Params("email"), req.Email, req.AccEmail),
		Secret: firstNonEmpty(req.Secret, req.AccPass),
		Admin:  req.Admin,
		Reason: firstNonEmpty(req.Reason, req.AReason),
	}
	if out.Admin == nil {
		out.Admin = req.AccAdmin
	}
	if err := validate.Struct(out); err != nil {
		return out, badRequest(errors.New("a valid email is required"))
	}
	return out, nil
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.accounts.ListAccounts(c.UserContext())
	if err != nil {
		return err
	}
	return success(c, "", accounts)
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	req, err := parseAccountRequest(c)
	if err != nil {
		return err
	}
	if len(req.Secret) < minSecretLength {
		return badRequest(errors.New("secret must be at least 8 characters"))
	}
	admin := req.Admin != nil && *req.Admin

	account, err := h.accounts.CreateAccount(c.UserContext(), middleware.Identity(c), services.NewAccount{
		Name:   req.Name,
		Email:  req.Email,
		Secret: req.Secret,
		Admin:  admin,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"error":   false,
		"tag":     TagSuccess,
		"message": "Account created",
		"data":    account,
	})
}

func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	req, err := parseAccountRequest(c)
	if err != nil {
		return err
	}
	if err := h.accounts.DeleteAccount(c.UserContext(), middleware.Identity(c), req.Email, req.Reason); err != nil {
		return err
	}
	return success(c, "Account deleted", nil)
}

func (h *AccountHandler) ResetPassword(c *fiber.Ctx) error {
	req, err := parseAccountRequest(c)
	if err != nil {
		return err
	}
	if len(req.Secret) < minSecretLength {
		return badRequest(errors.New("secret must be at least 8 characters"))
	}
	if err := h.accounts.ResetPassword(c.UserContext(), middleware.Identity(c), req.Email, req.Secret, req.Reason); err != nil {
		return err
	}
	return success(c, "Password reset", nil)
}

func (h *AccountHandler) SetPrivilege(c *fiber.Ctx) error {
	req, err := parseAccountRequest(c)
	if err != nil {
		return err
	}
	if req.Admin == nil {
		return badRequest(errors.New("admin flag is required"))
	}
	if err := h.accounts.SetPrivilege(c.UserContext(), middleware.Identity(c), req.Email, *req.Admin, req.Reason); err != nil {
		return err
	}
	return success(c, "Privilege updated", nil)
}

// AdminEmails serves the notification collaborator on the station side.
func (h *AccountHandler) AdminEmails(c *fiber.Ctx) error {
	emails, err := h.accounts.AdminEmails(c.UserContext())
	if err != nil {
		return err
	}
	return success(c, "", emails)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
