package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const nextCommandPath = "/api/station/commands/next"

// Tags the gateway puts on a poll response.
const (
	tagSuccess    = "__SUCCESS"
	tagNoCommands = "_NO_COMMANDS"
)

var (
	ErrCircuitOpen      = errors.New("gateway circuit breaker open")
	errUnexpectedStatus = errors.New("unexpected status code")
	errUnexpectedTag    = errors.New("unexpected response tag")
)

type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type pollResponse struct {
	Error   bool   `json:"error"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Data    *struct {
		Cmd string `json:"cmd"`
	} `json:"data"`
}

// Client talks to the gateway on behalf of the station.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gateway",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{http: httpClient, breaker: breaker, logger: logger}
}

// NextCommand claims the next pending command. ok is false when nothing is queued.
// The gateway marks a command delivered when it answers, so a request is never retried:
// a retry after a lost response would claim the following command too. Delivery is best
// effort; a command whose response is lost is not redelivered.
func (c *Client) NextCommand(ctx context.Context) (action string, ok bool, err error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var body pollResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&body).
			SetError(&body).
			Get(nextCommandPath)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%w: %d %s", errUnexpectedStatus, resp.StatusCode(), body.Tag)
		}
		return &body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", false, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return "", false, err
	}

	body := result.(*pollResponse)
	switch body.Tag {
	case tagNoCommands:
		return "", false, nil
	case tagSuccess:
		if body.Data == nil || body.Data.Cmd == "" {
			return "", false, fmt.Errorf("%w: success without a command", errUnexpectedTag)
		}
		return body.Data.Cmd, true, nil
	}
	return "", false, fmt.Errorf("%w: %q", errUnexpectedTag, body.Tag)
}
