package httpclient

import (
	"CourtSync/internal/config"
	"CourtSync/internal/metrics"
	"CourtSync/internal/model"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

const maxBodyBytes = 10 << 20

// StatusError non-2xx upstream response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetcher read-only GET client for one provider. Every request is sent; a circuit breaker
// only tracks upstream health (state gauge and transition logs).
type Fetcher struct {
	platform model.PlatformType
	client   *http.Client
	health   *gobreaker.TwoStepCircuitBreaker[[]byte]
	logger   *logrus.Logger
}

// NewFetcher health turns open after 5 consecutive failures and is re-checked after a minute
func NewFetcher(platform model.PlatformType, cfg *config.PlatformConfig, logger *logrus.Logger) *Fetcher {
	return NewFetcherWithClient(platform, NewHTTPClient(cfg, logger), cfg.UserAgent, logger)
}

// NewFetcherWithClient same as NewFetcher with a caller supplied http.Client (tests)
func NewFetcherWithClient(platform model.PlatformType, client *http.Client, userAgent string, logger *logrus.Logger) *Fetcher {
	name := string(platform)
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	health := gobreaker.NewTwoStepCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx is the request's fault, not an outage
		IsExcluded: func(err error) bool {
			if errors.Is(err, context.Canceled) {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"platform": name,
				"from":     from.String(),
				"to":       to.String(),
			}).Warn("upstream health state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &Fetcher{
		platform: platform,
		client:   withUpstreamHeaders(client, userAgent, logger),
		health:   health,
		logger:   logger,
	}
}

// Get performs a GET and returns the body of a 2xx response
func (f *Fetcher) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	// while open the outcome is not recorded; the request still goes out
	done, _ := f.health.Allow()
	body, err := f.do(ctx, url, header)
	if done != nil {
		done(err)
	}

	name := string(f.platform)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(name, "failure").Inc()
		return nil, err
	}
	metrics.UpstreamRequests.WithLabelValues(name, "success").Inc()
	return body, nil
}

// State current upstream health
func (f *Fetcher) State() gobreaker.State {
	return f.health.State()
}

func (f *Fetcher) do(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.WithError(err).WithField("url", url).Warn("close response body failed")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return body, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
