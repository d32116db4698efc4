package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/ml4ch/CoSESWeather/internal/models"
)

// Command kinds an administrator can queue for the station.
const (
	CommandReset   = "reset"
	CommandRestart = "restart"
)

// Action texts the station agent dispatches on.
const (
	ActionReset   = "Microcontroller reset"
	ActionRestart = "System restart"
)

var commandActions = map[string]string{
	CommandReset:   ActionReset,
	CommandRestart: ActionRestart,
}

// AuditLog is the append-only event ledger. Entries at PriorityPending double as a
// single-slot outbox of commands for the station.
type AuditLog struct {
	store  AuditStore
	logger *zap.Logger
}

func NewAuditLog(store AuditStore, logger *zap.Logger) *AuditLog {
	return &AuditLog{store: store, logger: logger}
}

// Record appends one entry. A failed write fails the caller's request.
func (a *AuditLog) Record(ctx context.Context, actor, action, reason string, priority int) error {
	entry, err := newAuditEntry(actor, action, reason, priority, nil)
	if err != nil {
		return err
	}
	return appendAudit(ctx, a.store, entry)
}

// Query returns entries whose priority is in priorities, newest first.
func (a *AuditLog) Query(ctx context.Context, priorities []int) ([]models.AuditLog, error) {
	if len(priorities) == 0 {
		return nil, invalid("at least one priority is required")
	}
	for _, p := range priorities {
		if !models.ValidPriority(p) {
			return nil, invalid("unknown priority %d", p)
		}
	}
	entries, err := a.store.QueryAudit(ctx, priorities)
	if err != nil {
		return nil, storageErr("query audit log", err)
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}
	return entries, nil
}

// PollPendingCommand claims the oldest pending command and returns its action text.
// ok is false when nothing is pending.
func (a *AuditLog) PollPendingCommand(ctx context.Context) (action string, ok bool, err error) {
	entry, err := a.store.ClaimPendingCommand(ctx)
	if err != nil {
		return "", false, storageErr("claim pending command", err)
	}
	if entry == nil {
		return "", false, nil
	}
	a.logger.Info("pending command delivered",
		zap.Uint64("audit_id", entry.ID),
		zap.String("action", entry.Action),
		zap.String("issued_by", entry.Actor),
	)
	return entry.Action, true, nil
}

// IssueCommand queues a station command. The pending entry is also the audit record
// of the admin action.
func (a *AuditLog) IssueCommand(ctx context.Context, actor, kind, reason string) (string, error) {
	action, ok := commandActions[kind]
	if !ok {
		return "", invalid("unknown command %q", kind)
	}
	if err := a.Record(ctx, actor, action, reason, models.PriorityPending); err != nil {
		return "", err
	}
	a.logger.Info("station command queued", zap.String("action", action), zap.String("actor", actor))
	return action, nil
}

func newAuditEntry(actor, action, reason string, priority int, details map[string]any) (*models.AuditLog, error) {
	if !models.ValidPriority(priority) {
		return nil, invalid("unknown priority %d", priority)
	}
	if reason == "" {
		reason = "--"
	}
	entry := &models.AuditLog{
		Actor:    actor,
		Action:   action,
		Reason:   reason,
		Priority: priority,
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("failed to encode audit details: %w", err)
		}
		entry.Details = datatypes.JSON(raw)
	}
	return entry, nil
}

func appendAudit(ctx context.Context, store AuditStore, entry *models.AuditLog) error {
	if err := store.AppendAudit(ctx, entry); err != nil {
		return storageErr("append audit entry", err)
	}
	return nil
}
