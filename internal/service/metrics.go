package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_gate_rejections_total",
			Help: "Review submissions rejected by a validation gate.",
		},
		[]string{"gate"},
	)

	trustRecomputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trust_recomputations_total",
			Help: "Merchant trust summary recomputations performed.",
		},
	)
)

const (
	gateModeration = "moderation"
	gateEvidence   = "evidence"
)
