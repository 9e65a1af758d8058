package telephony

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var webhookCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "callbridge",
	Subsystem: "webhooks",
	Name:      "events_total",
	Help:      "Provider webhook deliveries by handler and result.",
}, []string{"handler", "result"})
