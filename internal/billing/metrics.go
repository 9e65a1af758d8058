package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outcomeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callbridge",
		Subsystem: "billing",
		Name:      "call_outcomes_total",
		Help:      "Call billing outcomes by how the cost was settled.",
	}, []string{"outcome"})

	chargedMinor = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "callbridge",
		Subsystem: "billing",
		Name:      "wallet_charged_minor_total",
		Help:      "Total wallet amount charged for calls, in minor units.",
	})
)

const (
	outcomeInboundFree   = "inbound_free"
	outcomeZeroDuration  = "zero_duration"
	outcomeUnknownNumber = "unknown_number"
	outcomeNoPricing     = "no_pricing"
	outcomePlanCovered   = "plan_covered"
	outcomeWalletCharged = "wallet_charged"
	outcomeWaived        = "waived"
)
