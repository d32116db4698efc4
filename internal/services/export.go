package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ml4ch/CoSESWeather/internal/models"
)

type ExportRequest struct {
	Source      models.Source
	Channels    []string
	Start       int64
	Stop        int64
	Step        int64
	IncludeHiLo bool
}

// ChannelHiLo is the daily rollup series of one requested channel.
type ChannelHiLo struct {
	Channel string            `json:"channel"`
	Series  []models.HiLoStat `json:"series"`
}

// ExportResult is either a decimated series or, when NoData is set, the earliest
// timestamp the source holds at all. Earliest is nil if the source is empty.
type ExportResult struct {
	Source   models.Source
	Channels []models.Channel
	Rows     []models.Sample
	HiLo     []ChannelHiLo
	NoData   bool
	Earliest *int64
}

// ExportEngine serves resampled series from the primary and archive backends.
type ExportEngine struct {
	primary     SeriesSource
	archive     ArchiveSource
	audit       AuditStore
	concurrency int
	logger      *zap.Logger
}

func NewExportEngine(primary SeriesSource, archive ArchiveSource, audit AuditStore, hiloConcurrency int, logger *zap.Logger) *ExportEngine {
	if hiloConcurrency < 1 {
		hiloConcurrency = 1
	}
	return &ExportEngine{
		primary:     primary,
		archive:     archive,
		audit:       audit,
		concurrency: hiloConcurrency,
		logger:      logger,
	}
}

// Export fetches [Start, Stop) for the requested channels, decimates it by Step and,
// for the archive, attaches the per-channel hi/lo rollups. A non-empty export is
// attributed to actor in the audit log; if that write fails the export fails.
func (e *ExportEngine) Export(ctx context.Context, actor string, req ExportRequest) (*ExportResult, error) {
	channels, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	source := e.primary
	if req.Source == models.SourceArchive {
		source = e.archive
	}

	raw, err := source.Samples(ctx, channels, req.Start, req.Stop)
	if err != nil {
		return nil, storageErr("fetch samples", err)
	}

	result := &ExportResult{Source: req.Source, Channels: channels}

	if len(raw) == 0 {
		ts, ok, err := source.Earliest(ctx)
		if err != nil {
			return nil, storageErr("fetch earliest timestamp", err)
		}
		result.NoData = true
		if ok {
			result.Earliest = &ts
		}
		return result, nil
	}

	result.Rows = Decimate(raw, req.Step)

	if req.IncludeHiLo {
		result.HiLo, err = e.hiLo(ctx, channels, req.Start, req.Stop)
		if err != nil {
			return nil, err
		}
	}

	entry, err := newAuditEntry(actor, "Data export ("+req.Source.String()+" database)", "", models.PriorityInfo, map[string]any{
		"channels": req.Channels,
		"start":    req.Start,
		"stop":     req.Stop,
		"step":     req.Step,
		"rows":     len(result.Rows),
		"hilo":     req.IncludeHiLo,
	})
	if err != nil {
		return nil, err
	}
	if err := appendAudit(ctx, e.audit, entry); err != nil {
		return nil, err
	}

	e.logger.Info("export served",
		zap.String("actor", actor),
		zap.String("source", req.Source.String()),
		zap.Int("raw_rows", len(raw)),
		zap.Int("rows", len(result.Rows)),
	)
	return result, nil
}

func (e *ExportEngine) validate(req ExportRequest) ([]models.Channel, error) {
	if req.Source != models.SourcePrimary && req.Source != models.SourceArchive {
		return nil, invalid("unknown source %d", req.Source)
	}
	if len(req.Channels) == 0 {
		return nil, invalid("at least one channel is required")
	}
	if req.Stop <= req.Start {
		return nil, invalid("stop must be after start")
	}
	if req.Step < 1 {
		return nil, invalid("step must be at least 1 second")
	}
	if req.IncludeHiLo && req.Source != models.SourceArchive {
		return nil, invalid("hi/lo statistics are only kept by the archive")
	}
	channels, unknown := models.LookupChannels(req.Source, req.Channels)
	if unknown != "" {
		return nil, invalid("unknown channel %q for %s source (known: %s)", unknown, req.Source, strings.Join(channelNames(req.Source), ", "))
	}
	return channels, nil
}

// hiLo fetches the rollups of every channel in parallel. Results land at the index of
// their channel, so output order matches request order.
func (e *ExportEngine) hiLo(ctx context.Context, channels []models.Channel, start, stop int64) ([]ChannelHiLo, error) {
	out := make([]ChannelHiLo, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			series, err := e.archive.HiLo(gctx, ch, start, stop)
			if err != nil {
				return storageErr("fetch hi/lo "+ch.Name, err)
			}
			if series == nil {
				series = []models.HiLoStat{}
			}
			out[i] = ChannelHiLo{Channel: ch.Name, Series: series}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func channelNames(source models.Source) []string {
	registry := models.PrimaryChannels
	if source == models.SourceArchive {
		registry = models.ArchiveChannels
	}
	names := make([]string, len(registry))
	for i, ch := range registry {
		names[i] = ch.Name
	}
	return names
}
