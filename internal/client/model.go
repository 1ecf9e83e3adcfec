package client

import (
	"time"

	"github.com/google/uuid"
)

// Client is a yard customer: the party billed for storage and handling.
type Client struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
