package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// Sender delivers one batch to a collector.
type Sender interface {
	Send(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) error
}

// HTTPSender posts OTLP/JSON batches with a bearer key.
type HTTPSender struct {
	URL    string
	APIKey string
	Client *http.Client
}

func (s *HTTPSender) Send(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) error {
	body, err := Marshal(req)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP status: %d", resp.StatusCode)
	}
	return nil
}

// Reporter periodically pushes the aggregator state to a Sender. Failed
// batches are logged and dropped; the next tick sends fresh values.
type Reporter struct {
	agg     *Aggregator
	sender  Sender
	sampler SystemSampler
	logger  zerolog.Logger

	source   string
	interval time.Duration
	timeout  time.Duration

	quit      chan struct{}
	closeOnce sync.Once
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

func WithInterval(d time.Duration) ReporterOption {
	return func(r *Reporter) { r.interval = d }
}

// WithTimeout bounds each Send call.
func WithTimeout(d time.Duration) ReporterOption {
	return func(r *Reporter) { r.timeout = d }
}

func WithLogger(l zerolog.Logger) ReporterOption {
	return func(r *Reporter) { r.logger = l }
}

func WithSampler(s SystemSampler) ReporterOption {
	return func(r *Reporter) { r.sampler = s }
}

// NewReporter wires a reporter tagging every point with source.
func NewReporter(agg *Aggregator, sender Sender, source string, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		agg:      agg,
		sender:   sender,
		source:   source,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		logger:   zerolog.Nop(),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sampler == nil {
		r.sampler = HostSampler{Logger: r.logger}
	}
	return r
}

// Run ticks until ctx is cancelled or Close is called.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.quit:
			return
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				r.logger.Error().Err(err).Msg("push metrics failed")
			}
		}
	}
}

// Tick samples, sweeps, snapshots and sends one batch.
func (r *Reporter) Tick(ctx context.Context) error {
	sys := r.sampler.Sample(ctx)
	if evicted := r.agg.ActiveUsers().SweepExpired(); evicted > 0 {
		r.logger.Debug().Int("evicted", evicted).Msg("expired active sessions")
	}
	batch := Batch(r.agg.Snapshot(), sys, r.source)

	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.sender.Send(sendCtx, batch)
}

func (r *Reporter) Close() {
	r.closeOnce.Do(func() { close(r.quit) })
}
