package agent

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/services"
)

// Executor carries out a command action received from the gateway.
type Executor interface {
	Run(ctx context.Context, action string) error
}

// ShellExecutor maps each action to a shell command line.
type ShellExecutor struct {
	commands map[string]string
	logger   *zap.Logger
}

func NewShellExecutor(resetCommand, restartCommand string, logger *zap.Logger) *ShellExecutor {
	return &ShellExecutor{
		commands: map[string]string{
			services.ActionReset:   resetCommand,
			services.ActionRestart: restartCommand,
		},
		logger: logger,
	}
}

func (e *ShellExecutor) Run(ctx context.Context, action string) error {
	cmdline, known := e.commands[action]
	if !known {
		return fmt.Errorf("unknown command action %q", action)
	}
	if strings.TrimSpace(cmdline) == "" {
		e.logger.Warn("no shell command configured, skipping", zap.String("action", action))
		return nil
	}

	out, err := exec.CommandContext(ctx, "/bin/sh", "-c", cmdline).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", action, err, strings.TrimSpace(string(out)))
	}
	e.logger.Info("command executed",
		zap.String("action", action),
		zap.String("output", strings.TrimSpace(string(out))),
	)
	return nil
}
