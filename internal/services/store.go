package services

import (
	"context"
	"time"

	"github.com/ml4ch/CoSESWeather/internal/models"
)

// AccountReader is the read side of the account table.
type AccountReader interface {
	// FindAccount returns ErrNotFound when no account matches. With adminOnly set the
	// lookup also filters on the privilege flag.
	FindAccount(ctx context.Context, email string, adminOnly bool) (*models.Account, error)
}

type AuditStore interface {
	AppendAudit(ctx context.Context, entry *models.AuditLog) error
	// QueryAudit returns entries whose priority is in priorities, newest first.
	QueryAudit(ctx context.Context, priorities []int) ([]models.AuditLog, error)
	// ClaimPendingCommand moves the oldest pending entry to PrioritySystemEvent in a
	// single statement and returns it, or nil when nothing is pending.
	ClaimPendingCommand(ctx context.Context) (*models.AuditLog, error)
}

// PrimaryStore is everything the gateway keeps in the primary database.
type PrimaryStore interface {
	AccountReader
	AuditStore

	ListAccounts(ctx context.Context) ([]models.Account, error)
	AdminEmails(ctx context.Context) ([]string, error)
	CountAccounts(ctx context.Context) (int64, error)
	CreateAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, email string) error
	UpdateSecret(ctx context.Context, email, hash, salt string) error
	SetAdmin(ctx context.Context, email string, admin bool) error
	TouchLastLogin(ctx context.Context, email string, at time.Time) error

	InsertReading(ctx context.Context, reading *models.SensorReading) error
	LatestReading(ctx context.Context) (*models.SensorReading, error)
	ClaimUnarchived(ctx context.Context) ([]models.SensorReading, error)

	// Transaction runs fn against a store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx PrimaryStore) error) error
}

// SeriesSource is one export backend.
type SeriesSource interface {
	// Samples returns records with start <= t < stop ordered ascending by timestamp,
	// projected to channels in the given order.
	Samples(ctx context.Context, channels []models.Channel, start, stop int64) ([]models.Sample, error)
	// Earliest returns the minimum timestamp of the whole table; ok is false when it is empty.
	Earliest(ctx context.Context) (ts int64, ok bool, err error)
}

// HiLoSource serves daily min/max rollups of one channel.
type HiLoSource interface {
	HiLo(ctx context.Context, channel models.Channel, start, stop int64) ([]models.HiLoStat, error)
}

// ArchiveSource is the secondary backend.
type ArchiveSource interface {
	SeriesSource
	HiLoSource
}
