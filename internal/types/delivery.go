package types

import "time"

// Delivery statuses recorded in the delivery log.
const (
	DeliveryStatusSuccess = "SUCCESS"
	DeliveryStatusFailed  = "FAILED"
)

// EmailTypePersonalized marks digests built from per-subscriber recommendations.
const EmailTypePersonalized = "PERSONALIZED"

// Subscriber represents a recipient who consented to receive digests.
type Subscriber struct {
	UserID string `json:"user_id"`
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name"`
}

// DeliveryRecord is one row of the delivery log.
type DeliveryRecord struct {
	RunID            string    `json:"run_id"`
	UserID           string    `json:"user_id,omitempty"`
	Email            string    `json:"email"`
	Subject          string    `json:"subject"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	RecommendedCount int       `json:"recommended_count"`
	SentAt           time.Time `json:"sent_at"`
}

// Succeeded reports whether the delivery was successful.
func (r *DeliveryRecord) Succeeded() bool {
	return r.Status == DeliveryStatusSuccess
}
