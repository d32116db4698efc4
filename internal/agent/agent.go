package agent

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// maxPerTick bounds how many queued commands one poll cycle drains.
const maxPerTick = 10

type Poller interface {
	NextCommand(ctx context.Context) (string, bool, error)
}

// Agent polls the gateway for pending commands and runs them on the station.
type Agent struct {
	poller    Poller
	executor  Executor
	interval  time.Duration
	timeout   time.Duration
	scheduler *gocron.Scheduler
	logger    *zap.Logger
}

func New(poller Poller, executor Executor, interval, timeout time.Duration, logger *zap.Logger) *Agent {
	return &Agent{
		poller:    poller,
		executor:  executor,
		interval:  interval,
		timeout:   timeout,
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
	}
}

// Start schedules the poll job and returns immediately.
func (a *Agent) Start() error {
	_, err := a.scheduler.Every(a.interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		a.Tick(ctx)
	})
	if err != nil {
		return err
	}
	a.scheduler.StartAsync()
	a.logger.Info("station agent started", zap.Duration("interval", a.interval))
	return nil
}

func (a *Agent) Stop() {
	a.scheduler.Stop()
}

// Tick drains pending commands until the queue is empty, the poll fails, or maxPerTick
// commands have run. It returns the number of commands received.
func (a *Agent) Tick(ctx context.Context) int {
	n := 0
	for n < maxPerTick {
		action, ok, err := a.poller.NextCommand(ctx)
		if err != nil {
			a.logger.Warn("poll failed", zap.Error(err))
			return n
		}
		if !ok {
			return n
		}
		n++

		a.logger.Info("command received", zap.String("action", action))
		if err := a.executor.Run(ctx, action); err != nil {
			a.logger.Error("command failed", zap.String("action", action), zap.Error(err))
		}
	}
	return n
}
