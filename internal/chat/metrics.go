package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_sessions",
		Help: "Number of currently registered connections",
	})

	LoggedInUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_logged_in_users",
		Help: "Number of users currently logged in",
	})

	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_total",
		Help: "Total protocol events processed by kind",
	}, []string{"kind"})

	EventProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_event_processing_seconds",
		Help:    "Time to process each event kind",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	BroadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcasts_total",
		Help: "Total snapshots fanned out to all logged-in sessions",
	})

	RejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_rejections_total",
		Help: "Total rejected logins, messages and connections by reason",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(LoggedInUsers)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(EventProcessingDuration)
	prometheus.MustRegister(BroadcastsTotal)
	prometheus.MustRegister(RejectionsTotal)
}
