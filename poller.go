package transit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/lodzlive/transit/feed"
	"github.com/lodzlive/transit/metrics"
	"github.com/lodzlive/transit/model"
	"github.com/lodzlive/transit/static"
)

const (
	DefaultPollInterval            = 10 * time.Second
	DefaultAdvisoryRefreshInterval = 60 * time.Second
	DefaultFetchTimeout            = 10 * time.Second

	// DefaultFeedMaxSize caps a single feed download. The MPK feeds sit
	// well under a megabyte; anything bigger is a broken upstream.
	DefaultFeedMaxSize = 16 << 20
)

// Fetcher retrieves one feed buffer.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches feeds over plain HTTP GET. The zero value uses
// http.DefaultClient semantics with DefaultFetchTimeout and
// DefaultFeedMaxSize.
type HTTPFetcher struct {
	Client  *http.Client
	Timeout time.Duration
	MaxSize int64
}

func (h *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	timeout := h.Timeout
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	maxSize := h.MaxSize
	if maxSize == 0 {
		maxSize = DefaultFeedMaxSize
	}
	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", url)
	}
	if int64(len(buf)) > maxSize {
		return nil, errors.Errorf("fetching %s: response exceeds %d bytes", url, maxSize)
	}
	return buf, nil
}

// Poller drives the fetch-decode-enrich-join cycle and publishes the
// result to a Store. A cycle is all-or-nothing: if either feed fails to
// fetch or decode, nothing is published and readers keep the previous
// snapshot.
type Poller struct {
	VehiclePositionsURL string
	TripUpdatesURL      string
	AlertsURL           string // optional
	Interval            time.Duration

	Fetcher        Fetcher
	Store          *Store
	Stops          map[string]model.Stop
	Classification *static.Classification

	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Run polls until ctx is cancelled. The first cycle runs immediately.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval == 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger().Error("poll cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single cycle. On success the new snapshot is
// published; on any failure the store is left untouched.
func (p *Poller) RunOnce(ctx context.Context) error {
	start := time.Now()
	if p.Metrics != nil {
		p.Metrics.CyclesTotal.Inc()
		defer func() {
			p.Metrics.CycleDuration.Observe(time.Since(start).Seconds())
		}()
	}

	vehicles, err := p.fetchAndMap(ctx, "vehicle_positions", p.VehiclePositionsURL)
	if err != nil {
		return err
	}
	updates, err := p.fetchAndMap(ctx, "trip_updates", p.TripUpdatesURL)
	if err != nil {
		return err
	}

	// Alerts are best-effort: a failed alerts fetch keeps the previous
	// cycle's alerts instead of failing the whole cycle.
	var alerts []model.AlertRecord
	if p.AlertsURL != "" {
		if res, err := p.fetchAndMap(ctx, "alerts", p.AlertsURL); err != nil {
			p.logger().Warn("alerts fetch failed", "error", err)
			if prev := p.Store.Latest(); prev != nil {
				alerts = prev.Alerts
			}
		} else {
			alerts = res.Alerts
		}
	}

	Enrich(vehicles.Vehicles, updates.Updates, p.Stops, p.Classification)
	joined := JoinDelays(vehicles.Vehicles, updates.Updates)

	snap := &Snapshot{
		Records:            joined,
		Alerts:             alerts,
		VehicleEntities:    vehicles.NumVehicleEntities,
		StopTimeUpdateRows: len(updates.Updates),
		FeedTimestamp:      vehicles.FeedTimestamp,
		FetchedAt:          start,
	}
	p.Store.Publish(snap)

	if p.Metrics != nil {
		p.Metrics.SnapshotVehicles.Set(float64(len(joined)))
		p.Metrics.SnapshotUpdates.Set(float64(len(updates.Updates)))
		p.Metrics.LastSuccess.Set(float64(time.Now().Unix()))
	}
	p.logger().Debug("published snapshot",
		"vehicles", len(joined),
		"stop_time_updates", len(updates.Updates),
		"feed_timestamp", vehicles.FeedTimestamp,
		"elapsed", time.Since(start))

	return nil
}

func (p *Poller) fetchAndMap(ctx context.Context, name, url string) (*feed.Result, error) {
	buf, err := p.Fetcher.Fetch(ctx, url)
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.FetchErrors.WithLabelValues(name).Inc()
		}
		return nil, errors.Wrapf(err, "fetching %s feed", name)
	}

	res, err := feed.Map(buf)
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.DecodeErrors.WithLabelValues(name).Inc()
		}
		return nil, errors.Wrapf(err, "decoding %s feed", name)
	}
	if res.NumSkippedEntities > 0 {
		p.logger().Warn("skipped malformed entities",
			"feed", name, "skipped", res.NumSkippedEntities)
	}
	return res, nil
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
