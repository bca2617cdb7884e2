package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	log "github.com/sirupsen/logrus"
	"net/http"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_tracker_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type", "source"},
	)
	SourceRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobs_tracker_source_run_duration_seconds",
			Help:    "Duration of one source run (crawl, reconcile, persist) in seconds.",
			Buckets: []float64{5, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"source", "status"},
	)
	StepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "jobs_tracker_step_duration_seconds",
			Help:       "Duration of each step of a source run.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"source", "step"},
	)
	PagesFetchedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_tracker_pages_fetched_total",
			Help: "Total number of fetched listing pages.",
		},
		[]string{"source"},
	)
	JobsScrapedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_tracker_jobs_scraped_total",
			Help: "Total number of scraped job records.",
		},
		[]string{"source"},
	)
	SnapshotJobs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobs_tracker_snapshot_jobs",
			Help: "Number of jobs in the latest snapshot by status.",
		},
		[]string{"source", "status"},
	)
)

var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(ErrorsCounter)
	Registry.MustRegister(SourceRunDuration)
	Registry.MustRegister(StepDuration)
	Registry.MustRegister(PagesFetchedCounter)
	Registry.MustRegister(JobsScrapedCounter)
	Registry.MustRegister(SnapshotJobs)
}

// StartMetricsServer serves /metrics, used in schedule mode where the process stays up.
func StartMetricsServer(address string) *http.Server {

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: address, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics server failed: %v", err)
		}
	}()
	log.Infof("metrics server listening on %s", address)
	return server
}

// Push sends the collected metrics to a Pushgateway after a one-shot run.
func Push(gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	err := push.New(gatewayURL, job).Gatherer(Registry).Push()
	if err != nil {
		return errors.Wrap(err, "push metrics")
	}
	return nil
}
