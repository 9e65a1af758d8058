package renewal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var renewalCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "callbridge",
	Subsystem: "renewal",
	Name:      "outcomes_total",
	Help:      "Renewal sweep outcomes by subject and result.",
}, []string{"subject", "result"})
