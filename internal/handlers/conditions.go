package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/middleware"
)

const (
	conditionsAuthTimeout = 10 * time.Second
	conditionsCallTimeout = 5 * time.Second
)

// ConditionsHandler streams the newest reading to dashboard clients over a websocket.
type ConditionsHandler struct {
	verifier middleware.Verifier
	readings ReadingService
	interval time.Duration
	logger   *zap.Logger
}

func NewConditionsHandler(verifier middleware.Verifier, readings ReadingService, interval time.Duration, logger *zap.Logger) *ConditionsHandler {
	return &ConditionsHandler{verifier: verifier, readings: readings, interval: interval, logger: logger}
}

// UpgradeCheck is middleware that checks if the request is a websocket upgrade
func (h *ConditionsHandler) UpgradeCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

type conditionsHello struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

// Stream expects {"identity","secret"} as the first message, then pushes the latest
// reading every interval until the client goes away.
func (h *ConditionsHandler) Stream() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		defer c.Close()

		_ = c.SetReadDeadline(time.Now().Add(conditionsAuthTimeout))
		var hello conditionsHello
		if err := c.ReadJSON(&hello); err != nil {
			h.writeTagged(c, TagBadRequest, "expected credentials as first message")
			return
		}
		_ = c.SetReadDeadline(time.Time{})

		ctx, cancel := context.WithTimeout(context.Background(), conditionsCallTimeout)
		ok, err := h.verifier.Verify(ctx, hello.Identity, hello.Secret, false)
		cancel()
		if err != nil {
			h.logger.Error("conditions stream: verification failed", zap.Error(err))
			h.writeTagged(c, TagStorage, "Storage unavailable")
			return
		}
		if !ok {
			h.writeTagged(c, TagAuth, "User not authenticated")
			return
		}

		h.logger.Info("conditions stream opened", zap.String("identity", hello.Identity))

		// Reader side only watches for the client closing the socket.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			if !h.push(c) {
				return
			}
			select {
			case <-done:
				h.logger.Info("conditions stream closed", zap.String("identity", hello.Identity))
				return
			case <-ticker.C:
			}
		}
	})
}

func (h *ConditionsHandler) push(c *websocket.Conn) bool {
	ctx, cancel := context.WithTimeout(context.Background(), conditionsCallTimeout)
	defer cancel()

	reading, ok, err := h.readings.Latest(ctx)
	var msg fiber.Map
	switch {
	case err != nil:
		h.logger.Warn("conditions stream: latest reading failed", zap.Error(err))
		msg = fiber.Map{"error": true, "tag": TagStorage, "message": "Storage unavailable"}
	case !ok:
		msg = fiber.Map{"error": false, "tag": TagNoResult, "message": "No readings stored yet"}
	default:
		msg = fiber.Map{"error": false, "tag": TagSuccess, "data": reading}
	}
	return c.WriteJSON(msg) == nil
}

func (h *ConditionsHandler) writeTagged(c *websocket.Conn, tag, message string) {
	payload, _ := json.Marshal(fiber.Map{"error": true, "tag": tag, "message": message})
	_ = c.WriteMessage(websocket.TextMessage, payload)
}
