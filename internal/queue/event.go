package queue

// EventType is the kind of inbound event reported by the chat gateway.
type EventType string

const (
	// EventRegister carries a finalized participant record as JSON payload.
	EventRegister EventType = "register"
	// EventAvailability changes a participant's availability tier.
	EventAvailability EventType = "availability"
	// EventRequestRun asks for a new run; the payload holds the schedule.
	EventRequestRun EventType = "request_run"
	EventSignup     EventType = "signup"
	EventWithdraw   EventType = "withdraw"
	// EventResponse answers a solicitation identified by its handle.
	EventResponse EventType = "response"
	// EventDeliveryFailed reports that a solicitation could not be delivered.
	EventDeliveryFailed EventType = "delivery_failed"
)

func (t EventType) Valid() bool {
	switch t {
	case EventRegister, EventAvailability, EventRequestRun, EventSignup,
		EventWithdraw, EventResponse, EventDeliveryFailed:
		return true
	}
	return false
}
