package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProofsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrpl_prover_proofs_started_total",
			Help: "Total number of signing sessions started",
		},
		[]string{"tx_type"},
	)

	ProofsAssembled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrpl_prover_proofs_assembled_total",
			Help: "Total number of signed transaction blobs assembled",
		},
		[]string{"tx_type"},
	)

	TxStatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrpl_prover_tx_status_transitions_total",
			Help: "Total number of transaction status updates",
		},
		[]string{"tx_type", "status"},
	)

	DroppedSignatures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xrpl_prover_dropped_signatures_total",
		Help: "Signatures left out of a proof because they failed to decode or verify",
	})

	AvailableTickets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xrpl_prover_available_tickets",
		Help: "Number of tickets held by the multisig account",
	})

	AmplifierRPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrpl_prover_amplifier_rpc_errors_total",
			Help: "Total number of failed Amplifier RPC calls",
		},
		[]string{"method"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrpl_prover_events_published_total",
			Help: "Total number of events published to NATS",
		},
		[]string{"event_type"},
	)

	EventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrpl_prover_events_failed_total",
			Help: "Total number of events that could not be published",
		},
		[]string{"event_type"},
	)
)
