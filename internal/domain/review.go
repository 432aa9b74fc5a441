package domain

import "time"

// ManualReview is a customer-submitted review awaiting manual triage.
type ManualReview struct {
	ID           string    `json:"id"`
	BusinessID   string    `json:"business_id"`
	CustomerName string    `json:"customer_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Status       string    `json:"status"`
}
