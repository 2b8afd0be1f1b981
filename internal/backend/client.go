// Package backend talks to the lab-interpretation REST service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"genomic-report-server/internal/models"
	"genomic-report-server/internal/session"
)

// ErrUnavailable matches every recoverable backend failure: transport errors,
// non-2xx responses and an open circuit.
var ErrUnavailable = errors.New("backend unavailable")

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: backend returned %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnavailable
}

// Config holds backend connection settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Breaker   BreakerConfig
}

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Client is safe for concurrent use. The caller's bearer token is read from
// the session attached to each request context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker.MaxRequests = 3
	}
	if cfg.Breaker.Interval == 0 {
		cfg.Breaker.Interval = 10 * time.Second
	}
	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker.Timeout = 5 * time.Second
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	threshold := cfg.Breaker.FailureThreshold
	settings := gobreaker.Settings{
		Name:        "LabBackend",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
		// 4xx answers mean the backend is up; only server and transport
		// failures count towards tripping.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return err == nil
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}
}

// GetLabResult fetches one report document.
func (c *Client) GetLabResult(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/lab-result/"+url.PathEscape(id), nil)
}

// ListAnalysisResults fetches the multi-patient overview.
func (c *Client) ListAnalysisResults(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/analysis-results/", nil)
}

// ProcessRequest is the body of PUT /process/{id}.
type ProcessRequest struct {
	IsProcessed bool             `json:"is_processed"`
	Referral    *ReferralPayload `json:"referral,omitempty"`
}

type ReferralPayload struct {
	Specialty     string `json:"specialty"`
	SuggestedDate string `json:"suggestedDate"`
}

// ProcessReport sets the report's processed flag.
func (c *Client) ProcessReport(ctx context.Context, id string, req ProcessRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode process request: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, "/process/"+url.PathEscape(id), body)
	return err
}

// ConfirmReferral marks the report processed and submits the edited referral.
func (c *Client) ConfirmReferral(ctx context.Context, reportID string, referral models.Referral) error {
	return c.ProcessReport(ctx, reportID, ProcessRequest{
		IsProcessed: true,
		Referral: &ReferralPayload{
			Specialty:     referral.Specialty,
			SuggestedDate: referral.SuggestedDate.UTC().Format(time.RFC3339),
		},
	})
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	token, err := session.Token(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, token, body)
	})

	entry := c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"duration": time.Since(start),
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
		}
		entry.WithError(err).Warn("Backend request failed")
		return nil, err
	}
	entry.Debug("Backend request completed")
	return result.([]byte), nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", ErrUnavailable, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
