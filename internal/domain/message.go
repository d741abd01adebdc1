package domain

import "time"

// Message is an anonymous message left on a profile. The sender is never
// stored beyond the IP used for rate limiting.
type Message struct {
	ID              string
	RecipientUserID string
	Content         string
	SenderIP        string
	CreatedAt       time.Time
}
