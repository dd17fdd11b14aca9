// Command stresstest hammers the anonymous surface of a running instance with
// concurrent page loads and health checks and reports the success rate. It is
// meant for checking that a deployment keeps serving under bursts, not for
// benchmarking the LLM-backed routes, which depend on upstream services.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/pelocoach/internal/e2etest"
	"github.com/myrjola/pelocoach/internal/logging"
	"github.com/myrjola/pelocoach/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRequestCount   = 500
	maxConcurrentRequests = 20
	requestTimeout        = 10 * time.Second
	successRateThreshold  = 95.0
	percentageMultiplier  = 100
)

type counters struct {
	attempted atomic.Int64
	succeeded atomic.Int64
}

func hitEndpoint(ctx context.Context, client *e2etest.Client, urlPath string, stats *counters) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	stats.attempted.Add(1)
	resp, err := client.Get(ctx, urlPath)
	if err != nil {
		return fmt.Errorf("get %s: %w", urlPath, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusOK {
		stats.succeeded.Add(1)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) < 2 { //nolint:mnd // hostname is required, request count is optional.
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname> [request-count]")
		os.Exit(1)
	}

	hostname := os.Args[1]
	requestCount := defaultRequestCount
	if len(os.Args) > 2 { //nolint:mnd // optional second argument
		var err error
		if requestCount, err = strconv.Atoi(os.Args[2]); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "invalid request count", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client, err := e2etest.NewClient(url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready", slog.Any("error", err))
		os.Exit(1)
	}

	var (
		stats counters
		start = time.Now()
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentRequests)
	for i := range requestCount {
		urlPath := "/"
		if i%2 == 1 {
			urlPath = "/api/healthy"
		}
		group.Go(func() error {
			return hitEndpoint(groupCtx, client, urlPath, &stats)
		})
	}
	if err = group.Wait(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "stresstest aborted", slog.Any("error", err))
		os.Exit(1)
	}

	attempted := stats.attempted.Load()
	succeeded := stats.succeeded.Load()
	successRate := float64(succeeded) / float64(attempted) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "stresstest finished",
		slog.Int64("attempted", attempted),
		slog.Int64("succeeded", succeeded),
		slog.String("success_rate", fmt.Sprintf("%.1f%%", successRate)),
		slog.Duration("duration", time.Since(start)))

	if successRate < successRateThreshold {
		logger.LogAttrs(ctx, slog.LevelError, "success rate below threshold",
			slog.String("threshold", fmt.Sprintf("%.1f%%", successRateThreshold)))
		os.Exit(1)
	}
}
