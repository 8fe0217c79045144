package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/consoleauth"
	"github.com/MrEthical07/consoleauth/console"
	"github.com/MrEthical07/consoleauth/metrics/export/prometheus"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Issue concurrent requests and report latency and refresh counts",
	Long: `Issue concurrent GET requests through one client.

With --force-401 the development backend is told to reject the next
--concurrency guarded requests, so the burst exercises one shared refresh.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	flags := benchCmd.Flags()
	flags.Int("concurrency", 32, "Number of concurrent workers")
	flags.Int("requests", 1000, "Total number of requests")
	flags.String("path", "/getInfo", "Path requested by every worker")
	flags.Bool("force-401", false, "Ask the development backend to reject one burst with 401")
	flags.String("dev-url", "", "Development backend root (defaults to the base URL's scheme and host)")
	flags.Bool("metrics", true, "Print client metrics in Prometheus text format")
}

func runBench(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	concurrency, _ := flags.GetInt("concurrency")
	requests, _ := flags.GetInt("requests")
	path, _ := flags.GetString("path")
	force, _ := flags.GetBool("force-401")
	devURL, _ := flags.GetString("dev-url")
	printMetrics, _ := flags.GetBool("metrics")

	if concurrency <= 0 || requests <= 0 {
		return errors.New("concurrency and requests must be > 0")
	}

	return withSession(cmd, func(ctx context.Context, c *consoleauth.Client, _ *console.API) error {
		if force {
			if devURL == "" {
				devURL = serverRoot(c.Config().Endpoint.BaseURL)
			}
			if err := applyFaults(ctx, devURL, concurrency); err != nil {
				return fmt.Errorf("set faults: %w", err)
			}
		}

		stats := runRequests(ctx, c, path, requests, concurrency)
		snap := c.MetricsSnapshot()

		fmt.Println("---- results ----")
		printStats(path, stats)
		fmt.Printf("refresh: success=%d failure=%d shared=%d proactive=%d unauthorized=%d replays=%d\n",
			snap.Counters[consoleauth.MetricRefreshSuccess],
			snap.Counters[consoleauth.MetricRefreshFailure],
			snap.Counters[consoleauth.MetricRefreshShared],
			snap.Counters[consoleauth.MetricProactiveRefresh],
			snap.Counters[consoleauth.MetricUnauthorized],
			snap.Counters[consoleauth.MetricReplay],
		)
		if printMetrics {
			fmt.Println("---- metrics ----")
			fmt.Print(prometheus.NewPrometheusExporter(c).Render())
		}
		return nil
	})
}

func runRequests(ctx context.Context, c *consoleauth.Client, path string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops || ctx.Err() != nil {
					return
				}
				t0 := time.Now()
				_, err := c.Do(ctx, consoleauth.Request{
					Method:              http.MethodGet,
					Path:                path,
					SuppressErrorNotice: true,
				})
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func applyFaults(ctx context.Context, root string, unauthorized int) error {
	body, err := json.Marshal(map[string]int{"unauthorized": unauthorized})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, root+"/__dev/faults", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// serverRoot strips the path from a base URL.
func serverRoot(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	return u.Scheme + "://" + u.Host
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	stats := phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
	if total > 0 {
		stats.opsPerS = float64(len(samples)) / total.Seconds()
	}
	return stats
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	// nearest rank
	idx := int(math.Ceil(float64(p)/100*float64(len(samples)))) - 1
	return samples[max(idx, 0)]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
