package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/greenli8/idea-validator/internal/model"
)

// ReportRepo persists analysis reports. Reports are append-only: Create is
// the sole write path for a row, and deletion happens only through the bulk
// history-clear or the account cascade.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// historyPageSize bounds how many reports the read path returns at once.
const historyPageSize = 20

// Create inserts a report row. The denormalized columns come from the
// validated analysis; full_report stores the provider payload verbatim so
// nothing the model produced is lost to re-marshaling.
func (r *ReportRepo) Create(ctx context.Context, userID uint64, originalIdea, provider string, a model.Analysis, full json.RawMessage) (model.Report, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO reports
			(user_id, original_idea, summary_verdict, viability_score, one_line_takeaway, market_reality, full_report, provider)
		VALUES (?,?,?,?,?,?,?,?)`,
		userID, originalIdea, a.SummaryVerdict, a.ViabilityScore, a.OneLineTakeaway, a.MarketReality, string(full), provider)
	if err != nil {
		return model.Report{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Report{}, err
	}
	return r.get(ctx, "id=?", uint64(id))
}

// ListByUser returns the user's most recent reports, newest first, capped at
// one history page. The full history is written but never fetched at once.
func (r *ReportRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Report, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, original_idea, summary_verdict, viability_score, one_line_takeaway, market_reality, full_report, provider, created_at
		FROM reports WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, historyPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]model.Report, 0, historyPageSize)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// GetByID fetches one report scoped to its owner.
func (r *ReportRepo) GetByID(ctx context.Context, id, userID uint64) (model.Report, error) {
	return r.get(ctx, "id=? AND user_id=?", id, userID)
}

// DeleteByUser clears the user's entire history.
func (r *ReportRepo) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reports WHERE user_id=?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ReportRepo) get(ctx context.Context, where string, args ...any) (model.Report, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, original_idea, summary_verdict, viability_score, one_line_takeaway, market_reality, full_report, provider, created_at
		FROM reports WHERE `+where+` LIMIT 1`, args...)
	return scanReport(row)
}

func scanReport(row rowScanner) (model.Report, error) {
	var (
		rep  model.Report
		full []byte
	)
	err := row.Scan(&rep.ID, &rep.UserID, &rep.OriginalIdea, &rep.SummaryVerdict,
		&rep.ViabilityScore, &rep.OneLineTakeaway, &rep.MarketReality, &full, &rep.Provider, &rep.CreatedAt)
	if err != nil {
		return model.Report{}, err
	}
	rep.FullReport = json.RawMessage(full)
	return rep, nil
}
