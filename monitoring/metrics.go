package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of one run. A batch job has no scrape
// endpoint, so the registry is written to a textfile at the end of the run.
type Metrics struct {
	registry *prometheus.Registry

	PagesVisited     prometheus.Counter
	CandidatesFound  *prometheus.CounterVec
	NewURLs          prometheus.Counter
	ListingsScraped  prometheus.Counter
	NavigationErrors *prometheus.CounterVec
	LicensesFound    prometheus.Counter
	HostsEnriched    prometheus.Counter
	RunDuration      prometheus.Gauge
	MasterRecords    prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesVisited: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvester_search_pages_total",
			Help: "Search result pages visited",
		}),
		CandidatesFound: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_candidate_urls_total",
			Help: "Listing URLs found, by detection strategy",
		}, []string{"strategy"}),
		NewURLs: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvester_new_urls_total",
			Help: "Listing URLs accepted as new",
		}),
		ListingsScraped: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvester_listings_scraped_total",
			Help: "Listing records produced",
		}),
		NavigationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_navigation_errors_total",
			Help: "Pages that failed to load",
		}, []string{"phase"}), // discovery, listing, host
		LicensesFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvester_license_codes_total",
			Help: "Listing records with a license code",
		}),
		HostsEnriched: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvester_hosts_enriched_total",
			Help: "Host profiles visited",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "harvester_run_duration_seconds",
			Help: "Wall-clock duration of the last run",
		}),
		MasterRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "harvester_master_records",
			Help: "Records in the master dataset after the merge",
		}),
	}
}

func (m *Metrics) IncNavigationError(phase string) {
	m.NavigationErrors.WithLabelValues(phase).Inc()
}

func (m *Metrics) AddCandidates(strategy string, n int) {
	m.CandidatesFound.WithLabelValues(strategy).Add(float64(n))
}

func (m *Metrics) ObserveRun(d time.Duration) {
	m.RunDuration.Set(d.Seconds())
}

// WriteTextfile exports every metric in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
