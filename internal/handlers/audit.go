package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ml4ch/CoSESWeather/internal/middleware"
	"github.com/ml4ch/CoSESWeather/internal/models"
)

// commandKindKey lets the dispatcher pass the command implied by an operation code.
const commandKindKey = "command_kind"

type AuditHandler struct {
	audit AuditService
}

func NewAuditHandler(audit AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

type auditView struct {
	ID       uint64    `json:"id"`
	User     string    `json:"user"`
	Action   string    `json:"action"`
	Reason   string    `json:"reason"`
	Priority string    `json:"priority"`
	Level    int       `json:"level"`
	Time     time.Time `json:"time"`
}

// ListAuditLogs returns entries for the requested priorities, newest first. Priorities
// come as a comma separated list in ?priority= or the a_prios body field.
func (h *AuditHandler) ListAuditLogs(c *fiber.Ctx) error {
	raw := c.Query("priority")
	if raw == "" {
		var body struct {
			APrios string `json:"a_prios" form:"a_prios"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return badRequest(errors.New("invalid request body"))
			}
		}
		raw = body.APrios
	}
	priorities, err := parsePriorities(raw)
	if err != nil {
		return err
	}

	entries, err := h.audit.Query(c.UserContext(), priorities)
	if err != nil {
		return err
	}
	views := make([]auditView, len(entries))
	for i, e := range entries {
		views[i] = auditView{
			ID:       e.ID,
			User:     e.Actor,
			Action:   e.Action,
			Reason:   e.Reason,
			Priority: models.PriorityLabel(e.Priority),
			Level:    e.Priority,
			Time:     e.CreatedAt,
		}
	}
	return success(c, "", views)
}

func parsePriorities(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, badRequest(errors.New("priority is required"))
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, badRequest(errors.New("priority must be a comma separated list of integers"))
		}
		out = append(out, n)
	}
	return out, nil
}

// IssueCommand queues a reset or restart for the station.
func (h *AuditHandler) IssueCommand(c *fiber.Ctx) error {
	var req struct {
		Command string `json:"command" form:"command"`
		Reason  string `json:"reason" form:"reason"`
		AReason string `json:"a_reason" form:"a_reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(errors.New("invalid request body"))
		}
	}
	if kind, ok := c.Locals(commandKindKey).(string); ok {
		req.Command = kind
	}
	if err := validate.Var(req.Command, "required,oneof=reset restart"); err != nil {
		return badRequest(errors.New("command must be reset or restart"))
	}

	action, err := h.audit.IssueCommand(c.UserContext(), middleware.Identity(c), req.Command, firstNonEmpty(req.Reason, req.AReason))
	if err != nil {
		return err
	}
	return success(c, "Command queued", fiber.Map{"cmd": action})
}

// NextCommand drains one pending command for the station. The controller polling it
// holds no credentials, so the route is public.
func (h *AuditHandler) NextCommand(c *fiber.Ctx) error {
	action, ok, err := h.audit.PollPendingCommand(c.UserContext())
	if err != nil {
		return err
	}
	if !ok {
		return tagged(c, TagNoCommands, "No pending commands", nil)
	}
	return success(c, "", fiber.Map{"cmd": action})
}
