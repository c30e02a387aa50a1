package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	changeRequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptdesk",
		Subsystem: "change_requests",
		Name:      "transitions_total",
		Help:      "Change request lifecycle transitions broken down by action.",
	}, []string{"action"})

	gateWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptdesk",
		Subsystem: "prompts",
		Name:      "writes_total",
		Help:      "Prompt resource writes broken down by gate outcome.",
	}, []string{"outcome"})
)
