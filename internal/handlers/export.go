package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ml4ch/CoSESWeather/internal/middleware"
	"github.com/ml4ch/CoSESWeather/internal/models"
	"github.com/ml4ch/CoSESWeather/internal/services"
)

const legacyDateLayout = "2006-01-02 15:04:05"

type ExportHandler struct {
	exporter Exporter
}

func NewExportHandler(exporter Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// exportRequest accepts unix-second bounds or the older d_* fields with date strings.
type exportRequest struct {
	Source   string   `json:"source" form:"source"`
	Channels []string `json:"channels" form:"channels"`
	Start    int64    `json:"start" form:"start"`
	Stop     int64    `json:"stop" form:"stop"`
	Step     int64    `json:"step" form:"step"`
	HiLo     bool     `json:"hilo" form:"hilo"`
	Format   string   `json:"format" form:"format"`

	DExportMode *int   `json:"d_export_mode" form:"d_export_mode"`
	DSensors    string `json:"d_sensors" form:"d_sensors"`
	DStart      string `json:"d_start" form:"d_start"`
	DStop       string `json:"d_stop" form:"d_stop"`
	DStep       string `json:"d_step" form:"d_step"`
	DHiLo       string `json:"d_hilo" form:"d_hilo"`
}

type exportParams struct {
	Source   string   `validate:"oneof=primary secondary"`
	Channels []string `validate:"required,min=1,dive,required"`
	Start    int64    `validate:"gte=0"`
	Stop     int64    `validate:"gtfield=Start"`
	Step     int64    `validate:"gte=1"`
	HiLo     bool
	Format   string `validate:"oneof=json csv xlsx"`
}

func (r *exportRequest) normalize() (exportParams, error) {
	p := exportParams{
		Source:   strings.ToLower(r.Source),
		Channels: r.Channels,
		Start:    r.Start,
		Stop:     r.Stop,
		Step:     r.Step,
		HiLo:     r.HiLo,
		Format:   strings.ToLower(r.Format),
	}
	if r.DExportMode != nil {
		p.Source = "primary"
		if *r.DExportMode == 1 {
			p.Source = "secondary"
		}
	}
	if r.DSensors != "" {
		for _, s := range strings.Split(r.DSensors, ",") {
			if s = strings.TrimSpace(s); s != "" {
				p.Channels = append(p.Channels, s)
			}
		}
	}
	var err error
	if r.DStart != "" {
		if p.Start, err = parseBound(r.DStart); err != nil {
			return p, err
		}
	}
	if r.DStop != "" {
		if p.Stop, err = parseBound(r.DStop); err != nil {
			return p, err
		}
	}
	if r.DStep != "" {
		if p.Step, err = strconv.ParseInt(strings.TrimSpace(r.DStep), 10, 64); err != nil {
			return p, badRequest(errors.New("step must be an integer number of seconds"))
		}
	}
	if r.DHiLo == "1" || strings.EqualFold(r.DHiLo, "true") {
		p.HiLo = true
	}
	if p.Source == "" {
		p.Source = "primary"
	}
	if p.Format == "" {
		p.Format = "json"
	}
	return p, nil
}

// parseBound accepts unix seconds or a UTC "YYYY-MM-DD hh:mm:ss" timestamp.
func parseBound(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.ParseInLocation(legacyDateLayout, s, time.UTC)
	if err != nil {
		return 0, badRequest(fmt.Errorf("invalid time %q: use unix seconds or %s", s, legacyDateLayout))
	}
	return t.Unix(), nil
}

func (h *ExportHandler) Export(c *fiber.Ctx) error {
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(errors.New("invalid request body"))
	}
	params, err := req.normalize()
	if err != nil {
		return err
	}
	if err := validate.Struct(params); err != nil {
		return badRequest(err)
	}

	source := models.SourcePrimary
	if params.Source == "secondary" {
		source = models.SourceArchive
	}

	result, err := h.exporter.Export(c.UserContext(), middleware.Identity(c), services.ExportRequest{
		Source:      source,
		Channels:    params.Channels,
		Start:       params.Start,
		Stop:        params.Stop,
		Step:        params.Step,
		IncludeHiLo: params.HiLo,
	})
	if err != nil {
		return err
	}

	if result.NoData {
		return tagged(c, TagNoResult, "No data in the requested window", fiber.Map{
			"source":   result.Source.String(),
			"earliest": result.Earliest,
		})
	}

	filename := fmt.Sprintf("export_%s_%d_%d", result.Source, params.Start, params.Stop)
	switch params.Format {
	case "csv":
		out, err := services.RenderCSV(result)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`.csv"`)
		return c.Send(out)
	case "xlsx":
		out, err := services.RenderXLSX(result)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`.xlsx"`)
		return c.Send(out)
	}

	channels := make([]string, len(result.Channels))
	for i, ch := range result.Channels {
		channels[i] = ch.Name
	}
	rows := make([][]interface{}, len(result.Rows))
	for i, s := range result.Rows {
		row := make([]interface{}, 0, len(s.Values)+1)
		row = append(row, s.Timestamp)
		for _, v := range s.Values {
			row = append(row, v)
		}
		rows[i] = row
	}
	data := fiber.Map{
		"source":   result.Source.String(),
		"channels": channels,
		"rows":     rows,
	}
	if result.HiLo != nil {
		data["hilo"] = result.HiLo
	}
	return success(c, "", data)
}
