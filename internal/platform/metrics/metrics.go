// Package metrics exposes the process-wide Prometheus instruments for the
// governance service. Registration happens once at init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProposalsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conclave",
		Subsystem: "governance",
		Name:      "proposals_submitted_total",
		Help:      "Proposals accepted by the engine, labelled by proposal type.",
	}, []string{"type"})

	ProposalsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "conclave",
		Subsystem: "governance",
		Name:      "proposals_processed_total",
		Help:      "Finalized proposals, labelled by tally outcome.",
	}, []string{"outcome"})

	VotesCast = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conclave",
		Subsystem: "governance",
		Name:      "votes_cast_total",
		Help:      "Ballots recorded across all proposals.",
	})

	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "conclave",
		Subsystem: "governance",
		Name:      "outbox_events_published_total",
		Help:      "Outbox messages relayed to the event bus.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "conclave",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of handled HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// Outcome label values for ProposalsProcessed.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
)
