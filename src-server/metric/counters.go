package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mycal_http_requests_total",
		Help: "Total number of HTTP requests, labelled by method and status.",
	}, []string{"method", "status"})

	EventsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mycal_events_created_total",
		Help: "Total number of events created.",
	})

	EventConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mycal_event_conflicts_total",
		Help: "Total number of writes rejected because of a time overlap.",
	})
)
