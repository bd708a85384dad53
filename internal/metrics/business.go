// Package metrics provides Prometheus metrics collection for the playback core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ApiCache metrics
	apiCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voidweaver_apicache_hits_total",
		Help: "Total number of ApiCache lookups served from cache",
	}, []string{"endpoint"})

	apiCacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voidweaver_apicache_misses_total",
		Help: "Total number of ApiCache lookups that required a fetch",
	}, []string{"endpoint"})

	apiCacheSingleFlightSharedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voidweaver_apicache_singleflight_shared_total",
		Help: "Total number of callers that rode an in-flight fetch instead of issuing their own",
	}, []string{"endpoint"})

	apiCacheFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voidweaver_apicache_fetch_errors_total",
		Help: "Total number of ApiCache underlying fetch failures",
	}, []string{"endpoint"})

	apiCachePersistLoadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voidweaver_apicache_persist_load_errors_total",
		Help: "Total number of persistent cache entries dropped as unparseable on load",
	})

	// ScrobbleQueue metrics
	scrobbleQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voidweaver_scrobble_queue_depth",
		Help: "Number of scrobble records currently queued",
	})

	scrobbleAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voidweaver_scrobble_attempts_total",
		Help: "Total scrobble submission attempts by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=now_playing|submission, outcome=success|failure

	scrobblePrunedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voidweaver_scrobble_pruned_total",
		Help: "Total scrobble records dropped without being delivered",
	}, []string{"reason"}) // reason=retry_exhausted|expired|obsoleted

	// PreloadCache metrics
	preloadEntriesReady = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voidweaver_preload_entries_ready",
		Help: "Number of preload cache entries currently in the ready state",
	})

	preloadPreparationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voidweaver_preload_preparations_total",
		Help: "Total preload preparation attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	preloadFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voidweaver_preload_fallbacks_total",
		Help: "Total number of times offline fallback to a preloaded entry was used",
	})

	// PlaybackController metrics
	playbackSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voidweaver_playback_skips_total",
		Help: "Total number of track skip operations started",
	})

	playbackSkipsCoalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voidweaver_playback_skips_coalesced_total",
		Help: "Total number of skip requests coalesced into a later in-flight skip",
	})

	playbackStateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voidweaver_playback_state_transitions_total",
		Help: "Total playback state machine transitions",
	}, []string{"from", "to"})

	// AudioFocusBridge metrics
	audioFocusEventsIgnoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voidweaver_audiofocus_events_ignored_total",
		Help: "Total focus-change events ignored as grant-handshake artefacts",
	}, []string{"event"})
)

// ObserveApiCacheHit records a cache hit for an endpoint class.
func ObserveApiCacheHit(endpoint string) { apiCacheHitsTotal.WithLabelValues(endpoint).Inc() }

// ObserveApiCacheMiss records a cache miss that triggered a fetch.
func ObserveApiCacheMiss(endpoint string) { apiCacheMissesTotal.WithLabelValues(endpoint).Inc() }

// ObserveApiCacheShared records a caller that shared an in-flight fetch.
func ObserveApiCacheShared(endpoint string) {
	apiCacheSingleFlightSharedTotal.WithLabelValues(endpoint).Inc()
}

// ObserveApiCacheFetchError records an underlying fetch failure.
func ObserveApiCacheFetchError(endpoint string) {
	apiCacheFetchErrorsTotal.WithLabelValues(endpoint).Inc()
}

// IncApiCachePersistLoadError records a persistent entry dropped on load.
func IncApiCachePersistLoadError() { apiCachePersistLoadErrorsTotal.Inc() }

// SetScrobbleQueueDepth records the current queue depth.
func SetScrobbleQueueDepth(n int) { scrobbleQueueDepth.Set(float64(n)) }

// ObserveScrobbleAttempt records a scrobble submission attempt outcome.
func ObserveScrobbleAttempt(kind, outcome string) {
	scrobbleAttemptsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncScrobblePruned records a record dropped without delivery.
func IncScrobblePruned(reason string) { scrobblePrunedTotal.WithLabelValues(reason).Inc() }

// SetPreloadEntriesReady records the number of ready preload entries.
func SetPreloadEntriesReady(n int) { preloadEntriesReady.Set(float64(n)) }

// ObservePreloadPreparation records a preload preparation outcome.
func ObservePreloadPreparation(outcome string) {
	preloadPreparationsTotal.WithLabelValues(outcome).Inc()
}

// IncPreloadFallback records an offline fallback to a preloaded entry.
func IncPreloadFallback() { preloadFallbacksTotal.Inc() }

// IncPlaybackSkip records a skip operation starting.
func IncPlaybackSkip() { playbackSkipsTotal.Inc() }

// IncPlaybackSkipCoalesced records a skip request coalesced into an in-flight skip.
func IncPlaybackSkipCoalesced() { playbackSkipsCoalescedTotal.Inc() }

// ObservePlaybackTransition records a state machine transition.
func ObservePlaybackTransition(from, to string) {
	playbackStateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// IncAudioFocusEventIgnored records a focus event ignored inside the grace window.
func IncAudioFocusEventIgnored(event string) {
	audioFocusEventsIgnoredTotal.WithLabelValues(event).Inc()
}
