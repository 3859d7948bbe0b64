// Package oracle issues the chart and question requests against the
// fortune backend. Failures never escape as errors: a chart request always
// yields a usable chart and a question request reports ok=false.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
)

const (
	DefaultTimeout = 15 * time.Second

	chartPath = "/api/chart"
	askPath   = "/api/ask"

	// RequestIDHeader tags each request so backend logs can be matched
	// against ours.
	RequestIDHeader = "X-Request-Id"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 1 << 20
)

var ErrMalformedChart = errors.New("chart response has no planets")

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request. Expiry counts as a failure.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChartOutcome is the settled result of a chart request. Err carries the
// cause when the fallback chart was substituted.
type ChartOutcome struct {
	Result       chart.Result
	UsedFallback bool
	Err          error
}

type askRequest struct {
	Question string            `json:"question"`
	Planets  []chart.Placement `json:"planets"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// RequestChart asks the backend for a chart. It makes one attempt.
func (c *Client) RequestChart(ctx context.Context, q chart.BirthQuery) ChartOutcome {
	var res chart.Result
	err := c.post(ctx, chartPath, q, &res)
	if err == nil && !res.Usable() {
		err = ErrMalformedChart
	}
	if err != nil {
		c.logger.Warn("chart request failed, using fallback",
			zap.String("city", q.City),
			zap.Error(err))
		return ChartOutcome{Result: chart.Fallback(), UsedFallback: true, Err: err}
	}
	c.logger.Debug("chart received", zap.Int("planets", len(res.Planets)))
	return ChartOutcome{Result: res}
}

// RequestAnswer asks a question about the given planets. The backend keeps
// no session, so the planets are the whole context.
func (c *Client) RequestAnswer(ctx context.Context, question string, planets []chart.Placement) (string, bool) {
	if planets == nil {
		planets = []chart.Placement{}
	}
	var res askResponse
	if err := c.post(ctx, askPath, askRequest{Question: question, Planets: planets}, &res); err != nil {
		c.logger.Warn("answer request failed", zap.Error(err))
		return "", false
	}
	answer := strings.TrimSpace(res.Answer)
	if answer == "" {
		c.logger.Warn("answer request returned empty answer")
		return "", false
	}
	return answer, true
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	c.logger.Debug("request", zap.String("path", path), zap.String("request_id", reqID))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s (%s): %w", path, reqID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
