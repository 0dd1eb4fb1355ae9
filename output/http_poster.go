package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/wildparky/pflow/component"
	"github.com/wildparky/pflow/errors"
	"github.com/wildparky/pflow/pkg/retry"
)

// HTTPConfig holds configuration for the HTTP poster
type HTTPConfig struct {
	// URL every value is POSTed to
	URL string `mapstructure:"url"`
	// Headers added to every request
	Headers map[string]string `mapstructure:"headers"`
	// Timeout per request attempt
	Timeout time.Duration `mapstructure:"timeout"`
	// Retries after the first failed attempt
	Retries int `mapstructure:"retries"`
	// ContentType of the request body
	ContentType string `mapstructure:"content_type"`
	// RateLimit caps requests per second; 0 means unlimited
	RateLimit float64 `mapstructure:"rate_limit"`
	// Burst of requests allowed above RateLimit
	Burst int `mapstructure:"burst"`
}

// Validate checks the configuration for errors
func (c *HTTPConfig) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: url is required", errors.ErrMissingConfig),
			"HTTPConfig", "Validate", "url check")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: url must be an absolute http(s) URL", errors.ErrInvalidConfig),
			"HTTPConfig", "Validate", "url check")
	}
	if c.Timeout < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: timeout must be >= 0", errors.ErrInvalidConfig),
			"HTTPConfig", "Validate", "timeout check")
	}
	if c.Retries < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: retries must be >= 0", errors.ErrInvalidConfig),
			"HTTPConfig", "Validate", "retries check")
	}
	if c.RateLimit < 0 || c.Burst < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: rate_limit and burst must be >= 0", errors.ErrInvalidConfig),
			"HTTPConfig", "Validate", "rate limit check")
	}
	return nil
}

// HTTPPoster POSTs every value it receives as a JSON body. A request that
// still fails after its retries is logged and counted; the poster keeps
// consuming. The response status of each request is sent on the optional
// STATUS port, 0 when no response arrived.
type HTTPPoster struct {
	*component.Base
	in      *component.InputPort
	status  *component.OutputPort
	client  *http.Client
	limiter *rate.Limiter
	config  HTTPConfig

	posted atomic.Int64
	failed atomic.Int64
}

// NewHTTPPoster creates a poster
func NewHTTPPoster(name string, cfg HTTPConfig) *HTTPPoster {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json"
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}
	return &HTTPPoster{
		Base:    component.NewBase(name),
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		config:  cfg,
	}
}

// Posted returns the number of values delivered with a 2xx response
func (p *HTTPPoster) Posted() int64 { return p.posted.Load() }

// Failed returns the number of values that could not be delivered
func (p *HTTPPoster) Failed() int64 { return p.failed.Load() }

// Initialize declares IN and STATUS
func (p *HTTPPoster) Initialize() error {
	p.in = p.DeclareInput("IN", component.WithDescription("Values to POST"))
	p.status = p.DeclareOutput("STATUS", component.Optional(), component.WithTypes(component.TypeInt),
		component.WithDescription("HTTP status code of each request"))
	return nil
}

// Run posts one value
func (p *HTTPPoster) Run(ctx context.Context) error {
	v, err := p.in.Receive(ctx)
	if err != nil {
		return err
	}

	body, err := encodeBody(v)
	if err != nil {
		return errors.WrapInvalid(err, p.Path(), "Run", "encode value")
	}

	code, err := p.post(ctx, body)
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		p.failed.Add(1)
		p.Log().Warn("HTTP post failed", "url", p.config.URL, "error", err)
	} else {
		p.posted.Add(1)
	}
	return p.status.Send(ctx, code)
}

func (p *HTTPPoster) post(ctx context.Context, body []byte) (int, error) {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = p.config.Retries + 1

	var code int
	err := retry.Do(ctx, cfg, func() error {
		// every attempt counts against the limit
		if err := p.limiter.Wait(ctx); err != nil {
			return retry.NonRetryable(err)
		}
		c, err := p.send(ctx, body)
		code = c
		return err
	})
	return code, err
}

func (p *HTTPPoster) send(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.URL, bytes.NewReader(body))
	if err != nil {
		return 0, retry.NonRetryable(err)
	}
	req.Header.Set("Content-Type", p.config.ContentType)
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.StatusCode, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resp.StatusCode, retry.NonRetryable(fmt.Errorf("unexpected status %d", resp.StatusCode))
	default:
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func encodeBody(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return json.Marshal(v)
}

func newHTTPPoster(name string, cfg map[string]any, _ component.Dependencies) (component.Node, error) {
	var config HTTPConfig
	if err := component.DecodeConfig(cfg, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewHTTPPoster(name, config), nil
}
