package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/models"
)

// ReadingService is the station-facing CRUD over the live table.
type ReadingService struct {
	store  PrimaryStore
	logger *zap.Logger
	now    func() time.Time
}

func NewReadingService(store PrimaryStore, logger *zap.Logger) *ReadingService {
	return &ReadingService{store: store, logger: logger, now: time.Now}
}

// Insert stores one reading stamped with the server clock.
func (s *ReadingService) Insert(ctx context.Context, reading *models.SensorReading) error {
	reading.ID = 0
	reading.TUnix = s.now().Unix()
	reading.Archived = false
	if err := s.store.InsertReading(ctx, reading); err != nil {
		return storageErr("insert reading", err)
	}
	return nil
}

// Latest returns the newest reading; ok is false when the table is empty.
func (s *ReadingService) Latest(ctx context.Context) (*models.SensorReading, bool, error) {
	reading, err := s.store.LatestReading(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("latest reading", err)
	}
	return reading, true, nil
}

// ClaimArchiveBatch hands every unarchived reading to the archiver and marks it archived.
func (s *ReadingService) ClaimArchiveBatch(ctx context.Context) ([]models.SensorReading, error) {
	readings, err := s.store.ClaimUnarchived(ctx)
	if err != nil {
		return nil, storageErr("claim archive batch", err)
	}
	if readings == nil {
		readings = []models.SensorReading{}
	}
	if len(readings) > 0 {
		s.logger.Info("archive batch claimed", zap.Int("rows", len(readings)))
	}
	return readings, nil
}
