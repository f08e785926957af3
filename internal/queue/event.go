// Package queue defines the domain events exchanged over the message broker
// and the background consumer that drains them. Email delivery is handled by
// an external pipeline; these events are its hand-off point.
package queue

// Queue names. One durable queue per event type.
const (
	QueueUserSignedUp     = "user.signedup"
	QueueReportCreated    = "report.created"
	QueuePaymentCompleted = "payment.completed"
)

// UserSignedUpEvent is published when an account is created, either via
// email/password signup or first Google login. Consumers use it to send the
// welcome email with the starting credit grant.
type UserSignedUpEvent struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Credits   int    `json:"credits"`
	Via       string `json:"via"` // "password" | "google"
	CreatedAt string `json:"created_at"`
}

// ReportCreatedEvent is published after an analysis report is persisted.
// It carries the summary fields so downstream consumers can notify or run
// analytics without querying the primary database.
type ReportCreatedEvent struct {
	ReportID       uint64  `json:"report_id"`
	UserID         uint64  `json:"user_id"`
	SummaryVerdict string  `json:"summary_verdict"`
	ViabilityScore float64 `json:"viability_score"`
	Provider       string  `json:"provider"`
	CreatedAt      string  `json:"created_at"`
}

// PaymentCompletedEvent is published after a verified Stripe webhook updated
// the user's entitlement.
type PaymentCompletedEvent struct {
	Email          string `json:"email"`
	Plan           string `json:"plan"`
	CreditsGranted int    `json:"credits_granted"`
	ProGranted     bool   `json:"pro_granted"`
	CompletedAt    string `json:"completed_at"`
}
