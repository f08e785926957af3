package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/greenli8/idea-validator/internal/model"
	"github.com/greenli8/idea-validator/internal/utils"
)

// UserRepo provides persistence for user accounts and their credit balance.
// Credit mutations are transactional: the balance column and the matching
// credit_ledger row are written together so the ledger always reconciles
// against the balance.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,google_id,name,is_pro,credits,preferences,stripe_customer_id,created_at,updated_at"

// Create inserts a user with a starting credit grant and writes the matching
// signup_grant ledger row. Password may be empty for OAuth accounts.
func (r *UserRepo) Create(ctx context.Context, email, password, name, googleID string, credits, cost int) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var hash string
	if password != "" {
		var err error
		hash, err = utils.HashPassword(password, cost)
		if err != nil {
			return model.User{}, err
		}
	}
	if name == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		} else {
			name = email
		}
	}
	prefs, err := json.Marshal(model.DefaultPreferences())
	if err != nil {
		return model.User{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, google_id, name, is_pro, credits, preferences) VALUES (?,?,?,?,0,?,?)",
		email, nullable(hash), nullable(googleID), name, credits, string(prefs))
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	if credits > 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO credit_ledger (user_id, delta, reason) VALUES (?,?,?)",
			id, credits, model.CreditReasonSignupGrant); err != nil {
			return model.User{}, err
		}
	}

	u, err := scanUser(tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=?", id))
	if err != nil {
		return model.User{}, err
	}
	return u, tx.Commit()
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// DeductCredit atomically spends one analysis credit. The user row is locked
// for the duration of the transaction so two concurrent requests against a
// balance of 1 cannot both observe it and drive the balance negative.
// Pro-tier users pass through untouched: the call succeeds and returns the
// unchanged record so callers stay oblivious to tier. requestID tags the
// ledger row so a later refund can be matched to this deduction.
func (r *UserRepo) DeductCredit(ctx context.Context, userID uint64, requestID string) (model.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer tx.Rollback()

	u, err := scanUser(tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? FOR UPDATE", userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	if u.IsPro {
		// Side-effect-free pass-through; nothing to commit but releasing the
		// lock via commit keeps the exit path uniform.
		return u, tx.Commit()
	}
	if u.Credits <= 0 {
		return model.User{}, ErrInsufficientCredits
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET credits = credits - 1 WHERE id=?", userID); err != nil {
		return model.User{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO credit_ledger (user_id, delta, reason, request_id) VALUES (?,-1,?,?)",
		userID, model.CreditReasonAnalysis, nullable(requestID)); err != nil {
		return model.User{}, err
	}
	u.Credits--
	return u, tx.Commit()
}

// RefundCredit unconditionally adds credits back. It needs no guard: refunds
// are plain increments regardless of tier or current balance. The ledger row
// carries the originating request ID so the refund is auditable against the
// deduction it cancels.
func (r *UserRepo) RefundCredit(ctx context.Context, userID uint64, amount int, requestID string) (model.User, error) {
	return r.addCreditsTx(ctx, userID, amount, model.CreditReasonRefund, requestID)
}

// AddCreditsByEmail grants purchased credits to the account matching the
// given email. Used by the payment webhook, which only knows the customer's
// email address.
func (r *UserRepo) AddCreditsByEmail(ctx context.Context, email string, amount int) (model.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	return r.addCreditsTx(ctx, u.ID, amount, model.CreditReasonPurchase, "")
}

func (r *UserRepo) addCreditsTx(ctx context.Context, userID uint64, amount int, reason, requestID string) (model.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET credits = credits + ? WHERE id=?", amount, userID)
	if err != nil {
		return model.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and a no-op update; a
		// credit grant always changes the balance, so treat it as missing.
		if err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=?", userID).Scan(new(uint64)); err == sql.ErrNoRows {
			return model.User{}, ErrUserNotFound
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO credit_ledger (user_id, delta, reason, request_id) VALUES (?,?,?,?)",
		userID, amount, reason, nullable(requestID)); err != nil {
		return model.User{}, err
	}
	u, err := scanUser(tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=?", userID))
	if err != nil {
		return model.User{}, err
	}
	return u, tx.Commit()
}

// CreditHistory returns the user's most recent ledger entries, newest first.
// The ledger is the audit trail for every balance mutation: grants carry a
// positive delta, analysis deductions carry -1 tagged with the request id.
func (r *UserRepo) CreditHistory(ctx context.Context, userID uint64, limit int) ([]model.CreditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, delta, reason, request_id, created_at
		FROM credit_ledger WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]model.CreditEntry, 0, limit)
	for rows.Next() {
		var (
			e     model.CreditEntry
			reqID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &reqID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.RequestID = reqID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetPro flips the unlimited-use flag for the account matching the email.
func (r *UserRepo) SetPro(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_pro=1 WHERE email=?", email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var id uint64
		if err := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE email=?", email).Scan(&id); err == sql.ErrNoRows {
			return ErrUserNotFound
		}
	}
	return nil
}

// LinkGoogle stores the Google subject on an existing account.
func (r *UserRepo) LinkGoogle(ctx context.Context, userID uint64, googleID string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET google_id=? WHERE id=?", googleID, userID)
	return err
}

// UpdateProfile applies a partial profile update. Nil fields are untouched.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID uint64, name *string, prefs *model.Preferences) (model.User, error) {
	if name != nil {
		if _, err := r.DB.ExecContext(ctx, "UPDATE users SET name=? WHERE id=?", *name, userID); err != nil {
			return model.User{}, err
		}
	}
	if prefs != nil {
		blob, err := json.Marshal(prefs)
		if err != nil {
			return model.User{}, err
		}
		if _, err := r.DB.ExecContext(ctx, "UPDATE users SET preferences=? WHERE id=?", string(blob), userID); err != nil {
			return model.User{}, err
		}
	}
	return r.GetByID(ctx, userID)
}

// Delete removes the account. Reports and ledger rows cascade via foreign keys.
func (r *UserRepo) Delete(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", userID)
	return err
}

// SetStripeCustomerID stores the Stripe customer reference after first checkout.
func (r *UserRepo) SetStripeCustomerID(ctx context.Context, userID uint64, customerID string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET stripe_customer_id=? WHERE id=?", customerID, userID)
	return err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(row rowScanner) (model.User, error) {
	var (
		u        model.User
		hash     sql.NullString
		googleID sql.NullString
		stripeID sql.NullString
		prefs    sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &hash, &googleID, &u.Name, &u.IsPro, &u.Credits,
		&prefs, &stripeID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.PasswordHash = hash.String
	u.GoogleID = googleID.String
	u.StripeCustomerID = stripeID.String
	if prefs.Valid && prefs.String != "" {
		_ = json.Unmarshal([]byte(prefs.String), &u.Preferences)
	}
	return u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isDuplicateKey reports whether err is a MySQL 1062 unique violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
