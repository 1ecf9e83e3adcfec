package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Movement is a container's stay in the yard, stored as a single row: the
// gate-out timestamp is stamped onto the gate-in row rather than recorded as
// a separate linked record.
type Movement struct {
	ID          uuid.UUID  `json:"id"`
	ContainerID string     `json:"container_id"`
	ClientID    uuid.UUID  `json:"client_id"`
	SizeClass   string     `json:"size_class"`
	BookingID   *uuid.UUID `json:"booking_id,omitempty"`
	DateIn      time.Time  `json:"date_in"`
	DateOut     *time.Time `json:"date_out,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// InYard reports whether the container is still inside.
func (m Movement) InYard() bool {
	return m.DateOut == nil
}

// ListFilter narrows movement listings.
type ListFilter struct {
	ClientID   *uuid.UUID
	InYardOnly bool
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
