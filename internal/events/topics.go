package events

// Topic constants for domain events emitted by the back office.
const (
	TopicGateIn             = "gate.in"
	TopicGateOut            = "gate.out"
	TopicBookingConfirmed   = "booking.confirmed"
	TopicBookingCancelled   = "booking.cancelled"
	TopicStatementGenerated = "billing.statement_generated"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicGateIn,
		TopicGateOut,
		TopicBookingConfirmed,
		TopicBookingCancelled,
		TopicStatementGenerated,
	}
}
