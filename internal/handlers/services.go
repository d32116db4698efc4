package handlers

import (
	"context"

	"github.com/ml4ch/CoSESWeather/internal/models"
	"github.com/ml4ch/CoSESWeather/internal/services"
)

type AccountService interface {
	Login(ctx context.Context, identity, secret string) (*services.LoginResult, error)
	ChangeOwnPassword(ctx context.Context, identity, oldSecret, newSecret string) error
	CreateAccount(ctx context.Context, actor string, in services.NewAccount) (*models.Account, error)
	DeleteAccount(ctx context.Context, actor, email, reason string) error
	ResetPassword(ctx context.Context, actor, email, secret, reason string) error
	SetPrivilege(ctx context.Context, actor, email string, admin bool, reason string) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	AdminEmails(ctx context.Context) ([]string, error)
}

type AuditService interface {
	Query(ctx context.Context, priorities []int) ([]models.AuditLog, error)
	PollPendingCommand(ctx context.Context) (string, bool, error)
	IssueCommand(ctx context.Context, actor, kind, reason string) (string, error)
}

type Exporter interface {
	Export(ctx context.Context, actor string, req services.ExportRequest) (*services.ExportResult, error)
}

type ReadingService interface {
	Insert(ctx context.Context, reading *models.SensorReading) error
	Latest(ctx context.Context) (*models.SensorReading, bool, error)
	ClaimArchiveBatch(ctx context.Context) ([]models.SensorReading, error)
}

var (
	_ AccountService = (*services.AccountService)(nil)
	_ AuditService   = (*services.AuditLog)(nil)
	_ Exporter       = (*services.ExportEngine)(nil)
	_ ReadingService = (*services.ReadingService)(nil)
)
