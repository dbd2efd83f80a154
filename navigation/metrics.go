package navigation

import (
	"quadnav/search"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindLabel    = "kind"
	outcomeLabel = "outcome"
	levelLabel   = "level"
	resultLabel  = "result"

	kindPath      = "path"
	kindFlowField = "flowfield"

	levelLocal = "local"
	levelRedis = "redis"
)

var (
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quadnav_search_duration_seconds",
		Help:    "The time spent running searches.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{
		kindLabel,
		outcomeLabel,
	})

	searchExpanded = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quadnav_search_expanded_leaves",
		Help:    "The number of leaves expanded by successful searches.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{
		kindLabel,
	})

	fieldCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadnav_flowfield_cache_lookups",
		Help: "The flow field cache lookups by cache level and result.",
	}, []string{
		levelLabel,
		resultLabel,
	})

	treeRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadnav_tree_rebuilds",
		Help: "The number of times a map tree was refilled with obstacles.",
	})

	loadedMaps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quadnav_loaded_maps",
		Help: "The number of maps held in memory.",
	})
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case search.IsUnreachable(err):
		return "unreachable"
	case search.IsAborted(err):
		return "aborted"
	default:
		return "error"
	}
}

func instrumentSearch(kind string, start time.Time, expanded int, err error) {
	searchDuration.
		With(prometheus.Labels{
			kindLabel:    kind,
			outcomeLabel: outcome(err),
		}).
		Observe(time.Since(start).Seconds())

	if err == nil {
		searchExpanded.
			With(prometheus.Labels{kindLabel: kind}).
			Observe(float64(expanded))
	}
}

func instrumentCacheLookup(level string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	fieldCacheLookups.
		With(prometheus.Labels{
			levelLabel:  level,
			resultLabel: result,
		}).
		Inc()
}
