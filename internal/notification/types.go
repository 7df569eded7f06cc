// Package notification delivers application status updates to applicants
// who opted in to email or SMS contact. The in-app feed lives with the
// tracker; this package only handles outbound channels.
package notification

import (
	"time"
)

// Channel is an outbound delivery channel
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// DeliveryStatus tracks a message through the send pipeline
type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "pending"
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
)

// Message is one outbound notification
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Channel   Channel        `json:"channel"`
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	Status    DeliveryStatus `json:"status"`

	RetryCount   int    `json:"retry_count"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// Contact is a session's opt-in delivery preferences. Sessions are
// anonymous until the applicant volunteers a way to reach them.
type Contact struct {
	SessionID    string    `json:"session_id"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	EmailEnabled bool      `json:"email_enabled"`
	SMSEnabled   bool      `json:"sms_enabled"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Stats summarizes delivery outcomes since startup
type Stats struct {
	TotalQueued  int64             `json:"total_queued"`
	TotalSent    int64             `json:"total_sent"`
	TotalFailed  int64             `json:"total_failed"`
	ByChannel    map[Channel]int64 `json:"by_channel"`
	DeliveryRate float64           `json:"delivery_rate"`
}
