package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SchemaFallbacks counts writes that were retried without optional columns
// because the deployed schema lacked one of them.
var SchemaFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "conti",
	Name:      "schema_fallbacks_total",
	Help:      "Writes retried with baseline columns after an undefined-column error.",
}, []string{"table"})
