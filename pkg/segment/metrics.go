package segment

import "github.com/prometheus/client_golang/prometheus"

var (
	segmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmarr_segments_created_total",
		Help: "Total number of shared memory segments created by this process.",
	})
	segmentsAttached = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmarr_segments_attached_total",
		Help: "Total number of foreign segments attached by this process.",
	})
	segmentsUnlinked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmarr_segments_unlinked_total",
		Help: "Total number of segments destroyed by this process.",
	})
	nameCollisions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmarr_name_collisions_total",
		Help: "Total number of OS-level name collisions hit during create.",
	})
	cleanupErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmarr_cleanup_errors_total",
		Help: "Total number of non-ignorable errors during exit cleanup.",
	})
)

func init() {
	prometheus.MustRegister(segmentsCreated, segmentsAttached,
		segmentsUnlinked, nameCollisions, cleanupErrors)
}
