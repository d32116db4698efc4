package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ml4ch/CoSESWeather/internal/models"
	"github.com/ml4ch/CoSESWeather/internal/services"
)

// projection renders the timestamp column followed by the quoted channel columns.
func projection(tsColumn string, channels []models.Channel) string {
	cols := make([]string, 0, len(channels)+1)
	cols = append(cols, pq.QuoteIdentifier(tsColumn))
	for _, ch := range channels {
		cols = append(cols, pq.QuoteIdentifier(ch.Column))
	}
	return strings.Join(cols, ", ")
}

// scanSamples reads rows shaped as (timestamp, channel...) into samples.
func scanSamples(rows *sql.Rows, channelCount int) ([]models.Sample, error) {
	var out []models.Sample
	for rows.Next() {
		var ts int64
		values := make([]sql.NullFloat64, channelCount)
		dest := make([]any, 0, channelCount+1)
		dest = append(dest, &ts)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}

		sample := models.Sample{Timestamp: ts, Values: make([]*float64, channelCount)}
		for i, v := range values {
			if v.Valid {
				f := v.Float64
				sample.Values[i] = &f
			}
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return out, nil
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullFloat64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// translate maps driver errors onto the service sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, sql.ErrNoRows) {
		return services.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return services.ErrDuplicateIdentity
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return services.ErrDuplicateIdentity
	}
	return err
}
