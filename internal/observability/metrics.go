package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	RowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_rows_total",
			Help: "Feed rows handled, by outcome",
		},
		[]string{"outcome"},
	)

	Completions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_requests_total",
			Help: "Completion API calls, by call site and outcome",
		},
		[]string{"call_site", "outcome"},
	)

	CompletionTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_tokens_total",
			Help: "Tokens billed by the completion API, by call site",
		},
		[]string{"call_site"},
	)

	ProductsEnriched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "products_enriched_total",
			Help: "Products that received marketing content",
		},
	)
)

var registerOnce sync.Once

// Start registers the collectors and, when port is set, serves /metrics in
// the background. Counters work without Start; they are just not exported.
func Start(port string) {
	registerOnce.Do(func() {
		prometheus.MustRegister(RowsProcessed, Completions, CompletionTokens, ProductsEnriched)
	})
	if port == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			log.Error().Err(err).Str("port", port).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("port", port).Msg("serving metrics")
}
