package model

import "time"

// WaitlistEntry mirrors the `waitlist` table. Emails are unique; repeated
// submissions update the source attribution instead of creating duplicates.
type WaitlistEntry struct {
	ID        uint64    // waitlist.id
	Email     string    // waitlist.email
	Source    string    // waitlist.source (nullable)
	CreatedAt time.Time // waitlist.created_at
	UpdatedAt time.Time // waitlist.updated_at
}
