package sender

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"pkt.systems/pslog"
)

const defaultTimeout = 15 * time.Second

// HTTPSender sends requests over the network through an HTTPClient.
type HTTPSender struct {
	client HTTPClient
	logger pslog.Base
}

type httpConfig struct {
	client HTTPClient
	logger pslog.Base
}

// Option configures an HTTPSender.
type Option func(*httpConfig)

// WithHTTPClient injects the client used for transmission.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *httpConfig) { c.client = client }
}

// WithLogger overrides the default logger (pslog console, info level).
func WithLogger(logger pslog.Base) Option {
	return func(c *httpConfig) { c.logger = logger }
}

// NewHTTP constructs an HTTPSender. Without WithHTTPClient it uses an
// *http.Client with a 15s timeout.
func NewHTTP(opts ...Option) *HTTPSender {
	cfg := httpConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.client == nil {
		cfg.client = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.logger == nil {
		cfg.logger = pslog.NewWithOptions(os.Stdout, pslog.Options{MinLevel: pslog.InfoLevel})
	}
	return &HTTPSender{client: cfg.client, logger: cfg.logger}
}

// Send performs the request and reads the whole body. Any status code is
// returned as a Response; only transport and read failures are errors.
func (s *HTTPSender) Send(ctx context.Context, req *http.Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	s.logger.Debug("sender.http.request", "method", req.Method, "url", req.URL.String())

	start := time.Now()
	resp, err := s.client.Do(req.WithContext(ctx))
	if err != nil {
		s.logger.Warn("sender.http.failed", "method", req.Method, "url", req.URL.String(), "err", err)
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Warn("sender.http.read_failed", "method", req.Method, "url", req.URL.String(), "err", err)
		return nil, fmt.Errorf("read body: %w", err)
	}
	s.logger.Debug("sender.http.response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode, "elapsed", elapsed)

	target := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		target = resp.Request.URL
	}
	return NewResponse(resp.StatusCode, resp.Header, body).at(target, elapsed), nil
}
