package domain

import "time"

// PaymentPlan is one of the two fixed subscription tiers.
type PaymentPlan struct {
	ID    PaymentPlanID `json:"id"`
	Name  string        `json:"name"`
	Price float64       `json:"price"`
}

// PaymentStatus is the state of a payment session.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
	PaymentExpired PaymentStatus = "expired"
)

// PaymentSession is an ephemeral payment attempt. It is created when the
// payment dialog opens and fully reset shortly after it closes; it is
// never persisted.
type PaymentSession struct {
	ID           string        `json:"id"`
	BusinessID   string        `json:"business_id"`
	BusinessName string        `json:"business_name"`
	Plan         PaymentPlan   `json:"plan"`
	Status       PaymentStatus `json:"status"`

	// RemainingSeconds counts down from the full window while pending.
	RemainingSeconds int `json:"remaining_seconds"`

	// PaymentURI is the synthesized payment link encoded in the code.
	PaymentURI string `json:"payment_uri"`
	// Code is the scannable code reference shown to the payer.
	Code string `json:"code"`

	TransactionID string     `json:"transaction_id,omitempty"`
	SucceededAt   *time.Time `json:"succeeded_at,omitempty"`
	PaidUntil     *time.Time `json:"paid_until,omitempty"`
}

// PaymentMetrics is an aggregate view over finished payment sessions,
// served by the payment metrics endpoint.
type PaymentMetrics struct {
	TotalSessions int64   `json:"total_sessions"`
	Succeeded     int64   `json:"succeeded"`
	Failed        int64   `json:"failed"`
	Expired       int64   `json:"expired"`
	SuccessRate   float64 `json:"success_rate"`
	Period        string  `json:"period"`
}

// PaymentReceipt summarizes a successful payment for the operator.
type PaymentReceipt struct {
	BusinessID    string    `json:"business_id"`
	BusinessName  string    `json:"business_name"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
	PlanName      string    `json:"plan_name"`
	InvoiceValue  float64   `json:"invoice_value"`
	Text          string    `json:"text"`
}
