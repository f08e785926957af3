package model

import "time"

// Reasons recorded against credit_ledger rows. Every mutation of a user's
// balance writes exactly one ledger row in the same transaction, so a refund
// can be matched to the failed deduction it cancels via the request ID.
const (
	CreditReasonSignupGrant = "signup_grant"
	CreditReasonAnalysis    = "analysis"
	CreditReasonRefund      = "refund"
	CreditReasonPurchase    = "purchase"
)

// CreditEntry is one append-only row of the credit_ledger table.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the balance that moved.
//	Delta     – signed credit change (-1 for a deduction, positive for grants).
//	Reason    – one of the CreditReason constants.
//	RequestID – analysis request UUID; empty for grants not tied to a request.
//	CreatedAt – timestamp of creation.
type CreditEntry struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"userId"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
