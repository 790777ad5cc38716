package models

// Event names a lifecycle action applied to a booking.
type Event string

const (
	EventCancel     Event = "cancel"
	EventArrive     Event = "arrive"
	EventNoShow     Event = "no_show"
	EventAutoCancel Event = "auto_cancel"
	EventComplete   Event = "complete"
)

// Transition is one allowed edge of the booking state machine.
type Transition struct {
	From    Status
	To      Status
	Event   Event
	Arrival *ArrivalState
	// OnlyUnknownArrival restricts the edge to bookings whose arrival is undetermined.
	OnlyUnknownArrival bool
}

// Allows reports whether the transition applies to the booking as it is now.
func (t Transition) Allows(b *Booking) bool {
	if b.Status != t.From {
		return false
	}
	return !t.OnlyUnknownArrival || b.Arrival == ArrivalUnknown
}

// Apply mutates the booking to the transition's target state.
func (t Transition) Apply(b *Booking) {
	b.Status = t.To
	if t.Arrival != nil {
		b.Arrival = *t.Arrival
	}
}

var (
	arrived = ArrivalArrived
	noShow  = ArrivalNoShow
)

// Cancelled and completed bookings never return to confirmed.
var transitionsTable = []Transition{
	{From: StatusConfirmed, To: StatusCancelled, Event: EventCancel},
	{From: StatusCancelled, To: StatusCancelled, Event: EventCancel},

	{From: StatusConfirmed, To: StatusConfirmed, Event: EventArrive, Arrival: &arrived},

	{From: StatusConfirmed, To: StatusCancelled, Event: EventNoShow, Arrival: &noShow},
	{From: StatusCancelled, To: StatusCancelled, Event: EventNoShow, Arrival: &noShow},

	{From: StatusConfirmed, To: StatusCancelled, Event: EventAutoCancel, OnlyUnknownArrival: true},

	{From: StatusConfirmed, To: StatusCompleted, Event: EventComplete},
	{From: StatusCompleted, To: StatusCompleted, Event: EventComplete},
}

// TransitionFor returns the allowed transition for a given status and event.
func TransitionFor(from Status, ev Event) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
