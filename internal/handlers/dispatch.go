package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ml4ch/CoSESWeather/internal/middleware"
	"github.com/ml4ch/CoSESWeather/internal/services"
)

// Operation codes accepted by POST /api/dispatch.
const (
	OpInsertReading     = 1
	OpArchiveBatch      = 2
	OpAdminEmails       = 3
	OpCurrentConditions = 4
	OpLogin             = 5
	OpChangePassword    = 6
	OpCreateAccount     = 7
	OpDeleteAccount     = 8
	OpResetPassword     = 9
	OpResetController   = 10
	OpRestartSystem     = 11
	OpAuditLog          = 12
	OpListAccounts      = 13
	OpPollCommand       = 14
	OpExport            = 15
)

type gate int

const (
	gateNone gate = iota
	gateStation
	gateStandard
	gateElevated
)

type dispatchRoute struct {
	gate    gate
	handler fiber.Handler
	command string
}

// DispatchHandler routes operation-coded requests to the same handlers the REST routes
// use, running the matching credential check first.
type DispatchHandler struct {
	verifier      middleware.Verifier
	stationSecret string
	routes        map[int]dispatchRoute
}

func NewDispatchHandler(
	verifier middleware.Verifier,
	stationSecret string,
	authHandler *AuthHandler,
	accountHandler *AccountHandler,
	auditHandler *AuditHandler,
	exportHandler *ExportHandler,
	readingHandler *ReadingHandler,
) *DispatchHandler {
	return &DispatchHandler{
		verifier:      verifier,
		stationSecret: stationSecret,
		routes: map[int]dispatchRoute{
			OpInsertReading:     {gate: gateStation, handler: readingHandler.InsertReading},
			OpArchiveBatch:      {gate: gateStation, handler: readingHandler.ClaimArchiveBatch},
			OpAdminEmails:       {gate: gateStation, handler: accountHandler.AdminEmails},
			OpCurrentConditions: {gate: gateStandard, handler: readingHandler.Latest},
			OpLogin:             {gate: gateNone, handler: authHandler.Login},
			OpChangePassword:    {gate: gateNone, handler: authHandler.ChangePassword},
			OpCreateAccount:     {gate: gateElevated, handler: accountHandler.CreateAccount},
			OpDeleteAccount:     {gate: gateElevated, handler: accountHandler.DeleteAccount},
			OpResetPassword:     {gate: gateElevated, handler: accountHandler.ResetPassword},
			OpResetController:   {gate: gateElevated, handler: auditHandler.IssueCommand, command: services.CommandReset},
			OpRestartSystem:     {gate: gateElevated, handler: auditHandler.IssueCommand, command: services.CommandRestart},
			OpAuditLog:          {gate: gateElevated, handler: auditHandler.ListAuditLogs},
			OpListAccounts:      {gate: gateElevated, handler: accountHandler.ListAccounts},
			OpPollCommand:       {gate: gateNone, handler: auditHandler.NextCommand},
			OpExport:            {gate: gateStandard, handler: exportHandler.Export},
		},
	}
}

func (h *DispatchHandler) Dispatch(c *fiber.Ctx) error {
	op, err := operationCode(c)
	if err != nil {
		return err
	}
	route, ok := h.routes[op]
	if !ok {
		return badRequest(errors.New("unknown operation " + strconv.Itoa(op)))
	}

	switch route.gate {
	case gateStation:
		claims, err := middleware.ParseStationToken(c, h.stationSecret)
		if err != nil {
			return err
		}
		c.Locals(middleware.StationKey, claims.StationID)
	case gateStandard, gateElevated:
		if err := middleware.Authorize(c, h.verifier, route.gate == gateElevated); err != nil {
			return err
		}
	}

	if route.command != "" {
		c.Locals(commandKindKey, route.command)
	}
	return route.handler(c)
}

// operationCode reads op (or p_mode) from the query string or the body.
func operationCode(c *fiber.Ctx) (int, error) {
	raw := c.Query("op", c.Query("p_mode"))
	if raw == "" {
		var body struct {
			Op    int `json:"op" form:"op"`
			PMode int `json:"p_mode" form:"p_mode"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return 0, badRequest(errors.New("invalid request body"))
			}
		}
		switch {
		case body.Op != 0:
			return int(body.Op), nil
		case body.PMode != 0:
			return int(body.PMode), nil
		}
		return 0, badRequest(errors.New("operation code is required"))
	}
	op, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(errors.New("operation code must be an integer"))
	}
	return op, nil
}
