package model

import "time"

// Preferences is the free-form settings blob attached to a user. It is
// persisted as JSON in the users.preferences column.
type Preferences struct {
	EmailNotifications bool   `json:"emailNotifications"`
	MarketingEmails    bool   `json:"marketingEmails"`
	Theme              string `json:"theme"` // "light" | "dark" | "system"
}

// DefaultPreferences returns the preference set assigned at signup.
func DefaultPreferences() Preferences {
	return Preferences{EmailNotifications: true, MarketingEmails: false, Theme: "light"}
}

// User represents an application user record as stored in the `users` table.
//
// Fields:
//
//	ID               – primary key identifier of the user.
//	Email            – unique email address.
//	PasswordHash     – bcrypt hashed password; empty for OAuth-only accounts.
//	GoogleID         – Google subject identifier; empty when never linked.
//	Name             – display name.
//	IsPro            – unlimited-use entitlement flag; exempts credit checks.
//	Credits          – remaining analysis credits; never below zero for non-pro users.
//	Preferences      – JSON settings blob, see Preferences.
//	StripeCustomerID – Stripe customer reference; empty until first checkout.
//	CreatedAt        – timestamp of creation.
//	UpdatedAt        – timestamp of last update.
type User struct {
	ID               uint64      // users.id
	Email            string      // users.email
	PasswordHash     string      // users.password_hash (nullable)
	GoogleID         string      // users.google_id (nullable)
	Name             string      // users.name
	IsPro            bool        // users.is_pro
	Credits          int         // users.credits
	Preferences      Preferences // users.preferences (JSON)
	StripeCustomerID string      // users.stripe_customer_id (nullable)
	CreatedAt        time.Time   // users.created_at
	UpdatedAt        time.Time   // users.updated_at
}
