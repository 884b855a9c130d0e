package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		sessionsCreated,
		sessionsExpired,
		synthesisCacheHits,
	)
}

var (
	sessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Conversation sessions created.",
		},
	)

	sessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Conversation sessions discarded after exceeding their TTL.",
		},
	)

	synthesisCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "synthesis_cache_hits_total",
			Help: "Playback requests served from a message's cached audio reference.",
		},
	)
)

func IncSessionsCreated()    { sessionsCreated.Inc() }
func IncSessionsExpired()    { sessionsExpired.Inc() }
func IncSynthesisCacheHits() { synthesisCacheHits.Inc() }
