package queue // queue defines event payloads and RabbitMQ consumers

import "time"

// Queue names shared by publishers and consumers.
const (
	BookingClosedQueue   = "booking.closed"
	ExportRequestedQueue = "export.requested"
)

// BookingClosedEvent is published after a release commits. The audit
// consumer appends it to the booking log; nothing on the request path
// waits for it.
type BookingClosedEvent struct {
	BookingID  uint64    `json:"booking_id"`
	UserID     uint64    `json:"user_id"`
	LotID      uint64    `json:"lot_id"`
	LotName    string    `json:"lot_name"`
	SpotNumber uint32    `json:"spot_number"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Cost       float64   `json:"cost"`
	ClosedAt   time.Time `json:"closed_at"`
}

// ExportRequestedEvent asks the export worker to build a CSV of the
// user's bookings and mail it to them. JobID lets the client correlate
// the later email with the request.
type ExportRequestedEvent struct {
	JobID       string    `json:"job_id"`
	UserID      uint64    `json:"user_id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	RequestedAt time.Time `json:"requested_at"`
}
