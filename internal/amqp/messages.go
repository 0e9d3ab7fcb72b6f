package amqp

import (
	"encoding/json"
	"time"
)

const (
	TypeRequestCreated   = "request.created"
	TypeAttendanceMarked = "attendance.marked"
)

// Event is the single envelope published for both request and
// attendance notifications. Type selects which fields are meaningful.
// Delivery is advisory: consumers refresh from storage, so a lost or
// reordered event is harmless.
type Event struct {
	Type        string    `json:"type"`
	RiderID     string    `json:"rider_id"`
	PartnerID   string    `json:"partner_id"`
	Date        string    `json:"date"` // yyyy-mm-dd
	AmountCents int64     `json:"amount_cents,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRequestCreated builds the event published when a rider asks the
// partner to confirm today's travel.
func NewRequestCreated(riderID, partnerID, date string) *Event {
	return &Event{
		Type:      TypeRequestCreated,
		RiderID:   riderID,
		PartnerID: partnerID,
		Date:      date,
		Timestamp: time.Now(),
	}
}

// NewAttendanceMarked builds the event published after an attendance
// row is written.
func NewAttendanceMarked(partnerID, riderID, date string, amountCents int64) *Event {
	return &Event{
		Type:        TypeAttendanceMarked,
		RiderID:     riderID,
		PartnerID:   partnerID,
		Date:        date,
		AmountCents: amountCents,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
