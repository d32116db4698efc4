package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ml4ch/CoSESWeather/internal/models"
	"github.com/ml4ch/CoSESWeather/internal/services"
)

// Primary is the gorm-backed primary database: accounts, audit log and live readings.
type Primary struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPrimary(db *gorm.DB, logger *zap.Logger) *Primary {
	return &Primary{db: db, logger: logger}
}

var (
	_ services.PrimaryStore = (*Primary)(nil)
	_ services.SeriesSource = (*Primary)(nil)
)

func (r *Primary) Transaction(ctx context.Context, fn func(tx services.PrimaryStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Primary{db: tx, logger: r.logger})
	})
}

// ─── Accounts ────────────────────────────────────────────────────────────

func (r *Primary) FindAccount(ctx context.Context, email string, adminOnly bool) (*models.Account, error) {
	query := r.db.WithContext(ctx).Where("email = ?", email)
	if adminOnly {
		query = query.Where("admin = ?", true)
	}
	var account models.Account
	if err := query.Take(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *Primary) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := r.db.WithContext(ctx).Order("admin DESC").Order("email").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *Primary) AdminEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("admin = ?", true).
		Order("email").
		Pluck("email", &emails).Error
	return emails, err
}

func (r *Primary) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Count(&n).Error
	return n, err
}

func (r *Primary) CreateAccount(ctx context.Context, account *models.Account) error {
	return translate(r.db.WithContext(ctx).Create(account).Error)
}

func (r *Primary) DeleteAccount(ctx context.Context, email string) error {
	res := r.db.WithContext(ctx).Where("email = ?", email).Delete(&models.Account{})
	return affectedOne(res)
}

func (r *Primary) UpdateSecret(ctx context.Context, email, hash, salt string) error {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"hash":       hash,
			"salt":       salt,
			"updated_at": time.Now(),
		})
	return affectedOne(res)
}

func (r *Primary) SetAdmin(ctx context.Context, email string, admin bool) error {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"admin":      admin,
			"updated_at": time.Now(),
		})
	return affectedOne(res)
}

func (r *Primary) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("email = ?", email).
		Update("last_login", at)
	return affectedOne(res)
}

func affectedOne(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

// ─── Audit log ───────────────────────────────────────────────────────────

func (r *Primary) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Primary) QueryAudit(ctx context.Context, priorities []int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("priority IN ?", priorities).
		Order("id DESC").
		Find(&entries).Error
	return entries, err
}

// claimPendingSQL selects and claims one row in one statement. SKIP LOCKED keeps a
// concurrent poller from blocking on, and then re-claiming, the same row.
const claimPendingSQL = `
	UPDATE audit_logs SET priority = ?
	WHERE id = (
		SELECT id FROM audit_logs
		WHERE priority = ?
		ORDER BY id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, actor, action, reason, priority, details, created_at`

func (r *Primary) ClaimPendingCommand(ctx context.Context) (*models.AuditLog, error) {
	var claimed []models.AuditLog
	err := r.db.WithContext(ctx).
		Raw(claimPendingSQL, models.PrioritySystemEvent, models.PriorityPending).
		Scan(&claimed).Error
	if err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, nil
	}
	r.logger.Debug("claimed pending command",
		zap.Uint64("audit_id", claimed[0].ID),
		zap.String("action", claimed[0].Action),
	)
	return &claimed[0], nil
}

// ─── Sensor readings ─────────────────────────────────────────────────────

func (r *Primary) InsertReading(ctx context.Context, reading *models.SensorReading) error {
	return r.db.WithContext(ctx).Create(reading).Error
}

func (r *Primary) LatestReading(ctx context.Context) (*models.SensorReading, error) {
	var reading models.SensorReading
	if err := r.db.WithContext(ctx).Order("t_unix DESC").Order("id DESC").Take(&reading).Error; err != nil {
		return nil, translate(err)
	}
	return &reading, nil
}

const claimUnarchivedSQL = `
	UPDATE sensor_datasets SET archived = true
	WHERE archived = false
	RETURNING id, temp, wind, spn1_rad_tot, spn1_rad_diff, spn1_sun, rad_cmp1, rad_cmp2, rad_cmp3, t_unix, archived`

// ClaimUnarchived hands every not yet archived reading to the archiver exactly once.
func (r *Primary) ClaimUnarchived(ctx context.Context) ([]models.SensorReading, error) {
	var readings []models.SensorReading
	if err := r.db.WithContext(ctx).Raw(claimUnarchivedSQL).Scan(&readings).Error; err != nil {
		return nil, err
	}
	sort.Slice(readings, func(i, j int) bool {
		if readings[i].TUnix == readings[j].TUnix {
			return readings[i].ID < readings[j].ID
		}
		return readings[i].TUnix < readings[j].TUnix
	})
	return readings, nil
}

func (r *Primary) Samples(ctx context.Context, channels []models.Channel, start, stop int64) ([]models.Sample, error) {
	rows, err := r.db.WithContext(ctx).
		Model(&models.SensorReading{}).
		Select(projection("t_unix", channels)).
		Where("t_unix >= ? AND t_unix < ?", start, stop).
		Order("t_unix ASC").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor_datasets: %w", err)
	}
	defer rows.Close()
	return scanSamples(rows, len(channels))
}

func (r *Primary) Earliest(ctx context.Context) (int64, bool, error) {
	var earliest sql.NullInt64
	err := r.db.WithContext(ctx).
		Model(&models.SensorReading{}).
		Select("MIN(t_unix)").
		Scan(&earliest).Error
	if err != nil {
		return 0, false, err
	}
	return earliest.Int64, earliest.Valid, nil
}
