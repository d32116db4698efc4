package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ml4ch/CoSESWeather/internal/models"
)

type ReadingHandler struct {
	readings ReadingService
}

func NewReadingHandler(readings ReadingService) *ReadingHandler {
	return &ReadingHandler{readings: readings}
}

// InsertReading stores one acquisition from the station server. Absent channels stay null.
func (h *ReadingHandler) InsertReading(c *fiber.Ctx) error {
	var reading models.SensorReading
	if err := c.BodyParser(&reading); err != nil {
		return badRequest(errors.New("invalid request body"))
	}
	if err := h.readings.Insert(c.UserContext(), &reading); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"error":   false,
		"tag":     TagSuccess,
		"message": "Reading stored",
		"data":    fiber.Map{"t_unix": reading.TUnix},
	})
}

// ClaimArchiveBatch returns every reading not yet handed to the archiver and marks it.
func (h *ReadingHandler) ClaimArchiveBatch(c *fiber.Ctx) error {
	batch, err := h.readings.ClaimArchiveBatch(c.UserContext())
	if err != nil {
		return err
	}
	return success(c, "", batch)
}

func (h *ReadingHandler) Latest(c *fiber.Ctx) error {
	reading, ok, err := h.readings.Latest(c.UserContext())
	if err != nil {
		return err
	}
	if !ok {
		return tagged(c, TagNoResult, "No readings stored yet", nil)
	}
	return success(c, "", reading)
}
