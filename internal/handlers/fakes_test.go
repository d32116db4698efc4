package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/models"
	"github.com/ml4ch/CoSESWeather/internal/services"
)

const (
	adminEmail  = "admin@coses.example"
	adminSecret = "adminsecret"
	userEmail   = "user@coses.example"
	userSecret  = "usersecret"
	testStation = "station-secret"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, identity, secret string, elevated bool) (bool, error) {
	switch identity {
	case adminEmail:
		return secret == adminSecret, nil
	case userEmail:
		return !elevated && secret == userSecret, nil
	}
	return false, nil
}

type fakeAccounts struct {
	err       error
	created   []services.NewAccount
	deleted   []string
	reset     map[string]string
	privilege map[string]bool
	lastActor string
	reason    string
}

func (f *fakeAccounts) Login(_ context.Context, identity, secret string) (*services.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if identity != userEmail || secret != userSecret {
		return nil, services.ErrAuthenticationFailed
	}
	last := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &services.LoginResult{Name: "User", Email: userEmail, LastLogin: &last}, nil
}

func (f *fakeAccounts) ChangeOwnPassword(_ context.Context, identity, oldSecret, newSecret string) error {
	if identity != userEmail || oldSecret != userSecret {
		return services.ErrAuthenticationFailed
	}
	return f.err
}

func (f *fakeAccounts) CreateAccount(_ context.Context, actor string, in services.NewAccount) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastActor = actor
	f.created = append(f.created, in)
	return &models.Account{Name: in.Name, Email: in.Email, Admin: in.Admin}, nil
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, actor, email, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.lastActor, f.reason = actor, reason
	f.deleted = append(f.deleted, email)
	return nil
}

func (f *fakeAccounts) ResetPassword(_ context.Context, actor, email, secret, reason string) error {
	if f.err != nil {
		return f.err
	}
	if f.reset == nil {
		f.reset = map[string]string{}
	}
	f.lastActor, f.reason = actor, reason
	f.reset[email] = secret
	return nil
}

func (f *fakeAccounts) SetPrivilege(_ context.Context, actor, email string, admin bool, reason string) error {
	if f.err != nil {
		return f.err
	}
	if f.privilege == nil {
		f.privilege = map[string]bool{}
	}
	f.lastActor, f.reason = actor, reason
	f.privilege[email] = admin
	return nil
}

func (f *fakeAccounts) ListAccounts(context.Context) ([]models.Account, error) {
	return []models.Account{
		{Name: "Admin", Email: adminEmail, Admin: true},
		{Name: "User", Email: userEmail},
	}, f.err
}

func (f *fakeAccounts) AdminEmails(context.Context) ([]string, error) {
	return []string{adminEmail}, f.err
}

type fakeAudit struct {
	entries    []models.AuditLog
	pending    []string
	queried    []int
	issued     []string
	issueActor string
	err        error
}

func (f *fakeAudit) Query(_ context.Context, priorities []int) ([]models.AuditLog, error) {
	f.queried = priorities
	return f.entries, f.err
}

func (f *fakeAudit) PollPendingCommand(context.Context) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	if len(f.pending) == 0 {
		return "", false, nil
	}
	action := f.pending[0]
	f.pending = f.pending[1:]
	return action, true, nil
}

func (f *fakeAudit) IssueCommand(_ context.Context, actor, kind, reason string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.issueActor = actor
	f.issued = append(f.issued, kind)
	if kind == services.CommandReset {
		return services.ActionReset, nil
	}
	return services.ActionRestart, nil
}

type fakeExporter struct {
	result *services.ExportResult
	err    error
	got    services.ExportRequest
	actor  string
}

func (f *fakeExporter) Export(_ context.Context, actor string, req services.ExportRequest) (*services.ExportResult, error) {
	f.got, f.actor = req, actor
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeReadings struct {
	inserted []models.SensorReading
	latest   *models.SensorReading
	batch    []models.SensorReading
	err      error
}

func (f *fakeReadings) Insert(_ context.Context, reading *models.SensorReading) error {
	if f.err != nil {
		return f.err
	}
	reading.TUnix = 1700000000
	f.inserted = append(f.inserted, *reading)
	return nil
}

func (f *fakeReadings) Latest(context.Context) (*models.SensorReading, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	return f.latest, f.latest != nil, nil
}

func (f *fakeReadings) ClaimArchiveBatch(context.Context) ([]models.SensorReading, error) {
	return f.batch, f.err
}

type testEnv struct {
	app      *fiber.App
	accounts *fakeAccounts
	audit    *fakeAudit
	exporter *fakeExporter
	readings *fakeReadings
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
}

func f64(v float64) *float64 { return &v }
