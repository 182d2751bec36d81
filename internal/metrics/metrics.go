package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoundsScoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cityguesser_rounds_scored_total",
		Help: "Total number of scored rounds",
	}, []string{"mode"})
	GamesFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cityguesser_games_finished_total",
		Help: "Total number of games played to the last round",
	}, []string{"mode"})
	RoundPoints = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cityguesser_round_points",
		Help:    "Points awarded per round",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})
	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cityguesser_store_errors_total",
		Help: "Store failures seen by the game, by operation",
	}, []string{"op"})
	BoundaryCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cityguesser_boundary_cache_hits_total",
		Help: "Total redis boundary cache hits",
	})
	BoundaryCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cityguesser_boundary_cache_misses_total",
		Help: "Total redis boundary cache misses",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cityguesser_active_sessions",
		Help: "Game sessions held in memory",
	})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cityguesser_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(RoundsScoredTotal)
	prometheus.MustRegister(GamesFinishedTotal)
	prometheus.MustRegister(RoundPoints)
	prometheus.MustRegister(StoreErrorsTotal)
	prometheus.MustRegister(BoundaryCacheHitsTotal)
	prometheus.MustRegister(BoundaryCacheMissesTotal)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(RequestDurationMs)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
