package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ItemsFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsherald_items_fetched_total",
			Help: "Raw feed entries returned by poll batches",
		},
	)

	ItemsDeduplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsherald_items_deduplicated_total",
			Help: "Entries dropped as already-seen fingerprints",
		},
	)

	ItemsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsherald_items_stored_total",
			Help: "Content items persisted after classification",
		},
	)

	FeedErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsherald_feed_errors_total",
			Help: "Source polls that failed or returned malformed documents",
		},
	)

	Sent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsherald_notifications_sent_total",
			Help: "Successful deliveries by channel",
		},
		[]string{"channel"},
	)

	SendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsherald_notification_failures_total",
			Help: "Deliveries dropped after bounded retries, by channel",
		},
		[]string{"channel"},
	)

	DigestsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsherald_digests_sent_total",
			Help: "Digest messages delivered",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		ItemsFetched, ItemsDeduplicated, ItemsStored, FeedErrors,
		Sent, SendFailures, DigestsSent,
	)
}
