package metrics

import "time"

// Recorder receives protocol events: request outcomes, settlements, and
// their latencies.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Event and operation names recorded by the client.
const (
	EventCall            = "call"
	EventChallenge       = "challenge"
	EventSettlement      = "settlement"
	EventPaymentRejected = "payment_rejected"

	OpRequest = "request"
	OpSettle  = "settle"
)
