package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/models"
	"github.com/ml4ch/CoSESWeather/internal/services"
)

const (
	archiveTable    = "archive"
	archiveTSColumn = "dateTime"
	// dayTablePrefix + channel column names the daily rollup table of a channel.
	dayTablePrefix = "archive_day_"
)

// Archive reads the long-term archive database. The schema belongs to the archiver,
// so it is queried with plain SQL rather than through gorm models.
type Archive struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewArchive(db *sql.DB, logger *zap.Logger) *Archive {
	return &Archive{db: db, logger: logger}
}

var _ services.ArchiveSource = (*Archive)(nil)

func (r *Archive) Samples(ctx context.Context, channels []models.Channel, start, stop int64) ([]models.Sample, error) {
	ts := pq.QuoteIdentifier(archiveTSColumn)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s >= $1 AND %s < $2 ORDER BY %s`,
		projection(archiveTSColumn, channels), pq.QuoteIdentifier(archiveTable), ts, ts, ts)

	rows, err := r.db.QueryContext(ctx, query, start, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()
	return scanSamples(rows, len(channels))
}

func (r *Archive) Earliest(ctx context.Context) (int64, bool, error) {
	query := fmt.Sprintf(`SELECT MIN(%s) FROM %s`,
		pq.QuoteIdentifier(archiveTSColumn), pq.QuoteIdentifier(archiveTable))

	var earliest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query).Scan(&earliest); err != nil {
		return 0, false, fmt.Errorf("failed to query earliest archive record: %w", err)
	}
	return earliest.Int64, earliest.Valid, nil
}

func (r *Archive) HiLo(ctx context.Context, channel models.Channel, start, stop int64) ([]models.HiLoStat, error) {
	ts := pq.QuoteIdentifier(archiveTSColumn)
	query := fmt.Sprintf(`SELECT "min", "mintime", "max", "maxtime", %s FROM %s WHERE %s >= $1 AND %s < $2 ORDER BY %s`,
		ts, pq.QuoteIdentifier(dayTablePrefix+channel.Column), ts, ts, ts)

	rows, err := r.db.QueryContext(ctx, query, start, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to query hi/lo for %s: %w", channel.Name, err)
	}
	defer rows.Close()

	stats := []models.HiLoStat{}
	for rows.Next() {
		var (
			min, max         sql.NullFloat64
			minTime, maxTime sql.NullInt64
			stat             models.HiLoStat
		)
		if err := rows.Scan(&min, &minTime, &max, &maxTime, &stat.DateTime); err != nil {
			return nil, fmt.Errorf("failed to scan hi/lo row: %w", err)
		}
		stat.Min = nullFloat64Ptr(min)
		stat.MinTime = nullInt64Ptr(minTime)
		stat.Max = nullFloat64Ptr(max)
		stat.MaxTime = nullInt64Ptr(maxTime)
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hi/lo rows: %w", err)
	}

	r.logger.Debug("hi/lo fetched", zap.String("channel", channel.Name), zap.Int("rows", len(stats)))
	return stats, nil
}
