package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

var startTime = time.Now()
var Version = "1.0.0"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type SystemHandler struct {
	primary Pinger
	archive Pinger
}

func NewSystemHandler(primary, archive Pinger) *SystemHandler {
	return &SystemHandler{primary: primary, archive: archive}
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	statusCode := fiber.StatusOK
	check := func(p Pinger) string {
		if p == nil {
			return "not configured"
		}
		if err := p.PingContext(ctx); err != nil {
			statusCode = fiber.StatusServiceUnavailable
			return "unreachable: " + err.Error()
		}
		return "ok"
	}
	primary := check(h.primary)
	archive := check(h.archive)

	overall := "ok"
	if statusCode != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":     overall,
		"service":    "cosesweather",
		"version":    Version,
		"time":       time.Now().UTC().Format(time.RFC3339),
		"uptime":     time.Since(startTime).String(),
		"db":         primary,
		"archive_db": archive,
	})
}
