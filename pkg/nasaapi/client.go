package nasaapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/marsimaging/rover-photos/pkg/logging"
	"github.com/marsimaging/rover-photos/pkg/query"
)

// DefaultBaseURL is the production Mars Photos API endpoint.
const DefaultBaseURL = "https://api.nasa.gov/mars-photos/api/v1"

// DefaultAPIKey is NASA's shared demonstration key.
const DefaultAPIKey = "DEMO_KEY"

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rover_api_requests_total",
		Help: "Total Mars Photos API requests by status",
	}, []string{"status"})

	apiRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rover_api_request_duration_seconds",
		Help:    "Mars Photos API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})
)

// Config holds the API client configuration.
type Config struct {
	// APIKey is the api.nasa.gov key (DEMO_KEY works with a small quota).
	APIKey string

	// BaseURL overrides the production endpoint (for testing).
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// Retry configures transport-level retries.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	if apiKey == "" {
		apiKey = DefaultAPIKey
	}
	return Config{
		APIKey:    apiKey,
		BaseURL:   DefaultBaseURL,
		UserAgent: "rover-photos/0.1.0",
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client performs photo queries against the Mars Photos API.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logging.NewLogger("nasa-api"),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// URL builds the request URL for a query. The query must already be valid.
func (c *Client) URL(q query.Query) string {
	cq := q.Canonical()

	params := url.Values{}
	if cq.Sol != nil {
		params.Set("sol", strconv.Itoa(*cq.Sol))
	} else {
		params.Set("earth_date", cq.EarthDate)
	}
	if cq.Camera != "" {
		params.Set("camera", cq.Camera)
	}
	params.Set("page", strconv.Itoa(cq.Page))
	params.Set("api_key", c.config.APIKey)

	return fmt.Sprintf("%s/rovers/%s/photos?%s", c.config.BaseURL, cq.Rover, params.Encode())
}

// Fetch performs the photo query and returns the raw response payload.
// Transient failures are retried here; the caller sees the final outcome.
func (c *Client) Fetch(ctx context.Context, q query.Query) ([]byte, error) {
	reqURL := c.URL(q)

	startTime := time.Now()
	defer func() {
		apiRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		var attemptErr error
		body, attemptErr = c.doRequest(ctx, reqURL)
		return attemptErr
	}, func(err error) ErrorClass {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr.ErrorClass
		}
		return ErrorClassNetwork
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// doRequest executes a single HTTP attempt.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Msg("HTTP request failed")
		return nil, fmt.Errorf("mars photos request: %w", err)
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errClass := classifyStatus(resp.StatusCode)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Mars Photos API error response")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	return body, nil
}
