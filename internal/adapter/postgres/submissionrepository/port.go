// Package submissionrepository stores submissions and their grading reports in PostgreSQL
package submissionrepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

var _ secondary.SubmissionRepository = (*SubmissionRepository)(nil)

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS submissions (
		id                 UUID PRIMARY KEY,
		code               TEXT NOT NULL,
		language           TEXT NOT NULL,
		function_signature TEXT NOT NULL DEFAULT '',
		test_cases         JSONB NOT NULL,
		timeout_seconds    INTEGER NOT NULL,
		status             TEXT NOT NULL,
		report             JSONB,
		error              TEXT,
		submitted_at       TIMESTAMPTZ NOT NULL,
		completed_at       TIMESTAMPTZ
	)
`

// submissionRow is the database shape of a submission; JSONB columns are kept as raw bytes
type submissionRow struct {
	ID                uuid.UUID      `db:"id"`
	Code              string         `db:"code"`
	Language          string         `db:"language"`
	FunctionSignature string         `db:"function_signature"`
	TestCases         []byte         `db:"test_cases"`
	TimeoutSeconds    int            `db:"timeout_seconds"`
	Status            string         `db:"status"`
	Report            []byte         `db:"report"`
	Error             sql.NullString `db:"error"`
	SubmittedAt       time.Time      `db:"submitted_at"`
	CompletedAt       sql.NullTime   `db:"completed_at"`
}

// SubmissionRepository implements the SubmissionRepository interface with PostgreSQL
type SubmissionRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewSubmissionRepository creates a new PostgreSQL submission repository
func NewSubmissionRepository(db *sqlx.DB, logger primary.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the submissions table when it does not exist yet
func (r *SubmissionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create submissions table: %w", err)
	}
	return nil
}

// Save inserts a submission, or overwrites the mutable columns of an existing one
func (r *SubmissionRepository) Save(ctx context.Context, submission *domain.Submission) error {
	row, err := toRow(submission)
	if err != nil {
		return err
	}

	tbl := domain.GetSubmissionTable()
	cols := []string{
		tbl.ID, tbl.Code, tbl.Language, tbl.FunctionSignature, tbl.TestCases, tbl.TimeoutSeconds,
		tbl.Status, tbl.Report, tbl.Error, tbl.SubmittedAt, tbl.CompletedAt,
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES (%s)
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s
	`,
		tbl.TableName(), strings.Join(cols, ", "), placeholders(len(cols)),
		tbl.ID,
		tbl.Status, tbl.Status,
		tbl.Report, tbl.Report,
		tbl.Error, tbl.Error,
		tbl.CompletedAt, tbl.CompletedAt,
	)
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	_, err = r.db.ExecContext(ctx, query,
		row.ID,
		row.Code,
		row.Language,
		row.FunctionSignature,
		row.TestCases,
		row.TimeoutSeconds,
		row.Status,
		row.Report,
		row.Error,
		row.SubmittedAt,
		row.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save submission", "submissionId", submission.ID, "error", err)
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// Get retrieves a submission by ID
func (r *SubmissionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	tbl := domain.GetSubmissionTable()
	query := sqlx.Rebind(sqlx.DOLLAR, fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ?
	`,
		tbl.ID, tbl.Code, tbl.Language, tbl.FunctionSignature, tbl.TestCases, tbl.TimeoutSeconds,
		tbl.Status, tbl.Report, tbl.Error, tbl.SubmittedAt, tbl.CompletedAt,
		tbl.TableName(), tbl.ID,
	))

	var row submissionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrSubmissionNotFound
		}
		r.logger.Error("Failed to get submission", "submissionId", id, "error", err)
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return fromRow(&row)
}

// MarkRunning moves a submission to RUNNING
func (r *SubmissionRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	tbl := domain.GetSubmissionTable()
	query := sqlx.Rebind(sqlx.DOLLAR, fmt.Sprintf(
		"UPDATE %s SET %s = ? WHERE %s = ?",
		tbl.TableName(), tbl.Status, tbl.ID,
	))
	return r.update(ctx, id, query, domain.SubmissionStatusRunning, id)
}

// Complete stores the final status, the report and an optional failure message
func (r *SubmissionRepository) Complete(
	ctx context.Context,
	id uuid.UUID,
	status domain.SubmissionStatus,
	report *domain.AggregateReport,
	errMsg *string,
) error {
	var reportJSON []byte
	if report != nil {
		var err error
		reportJSON, err = json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
	}

	tbl := domain.GetSubmissionTable()
	query := sqlx.Rebind(sqlx.DOLLAR, fmt.Sprintf(
		"UPDATE %s SET %s = ?, %s = ?, %s = ?, %s = ? WHERE %s = ?",
		tbl.TableName(), tbl.Status, tbl.Report, tbl.Error, tbl.CompletedAt, tbl.ID,
	))
	return r.update(ctx, id, query, status, reportJSON, errMsg, time.Now(), id)
}

func (r *SubmissionRepository) update(ctx context.Context, id uuid.UUID, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update submission", "submissionId", id, "error", err)
		return fmt.Errorf("failed to update submission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.ErrSubmissionNotFound
	}
	return nil
}

func toRow(s *domain.Submission) (*submissionRow, error) {
	testCases, err := json.Marshal(s.TestCases)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal test cases: %w", err)
	}

	row := &submissionRow{
		ID:                s.ID,
		Code:              s.Code,
		Language:          string(s.Language),
		FunctionSignature: s.FunctionSignature,
		TestCases:         testCases,
		TimeoutSeconds:    s.TimeoutSeconds,
		Status:            string(s.Status),
		SubmittedAt:       s.SubmittedAt,
	}
	if s.Report != nil {
		if row.Report, err = json.Marshal(s.Report); err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
	}
	if s.Error != nil {
		row.Error = sql.NullString{String: *s.Error, Valid: true}
	}
	if s.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: *s.CompletedAt, Valid: true}
	}
	return row, nil
}

func fromRow(row *submissionRow) (*domain.Submission, error) {
	s := &domain.Submission{
		ID:                row.ID,
		Code:              row.Code,
		Language:          domain.Language(row.Language),
		FunctionSignature: row.FunctionSignature,
		TimeoutSeconds:    row.TimeoutSeconds,
		Status:            domain.SubmissionStatus(row.Status),
		SubmittedAt:       row.SubmittedAt,
	}

	if err := json.Unmarshal(row.TestCases, &s.TestCases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal test cases: %w", err)
	}
	if len(row.Report) > 0 {
		var report domain.AggregateReport
		if err := json.Unmarshal(row.Report, &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		s.Report = &report
	}
	if row.Error.Valid {
		s.Error = &row.Error.String
	}
	if row.CompletedAt.Valid {
		s.CompletedAt = &row.CompletedAt.Time
	}
	return s, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
