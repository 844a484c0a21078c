package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

// txBeginner is satisfied by DBTX implementations that can begin a
// transaction (e.g. *pgxpool.Pool). UpdateStatus uses it to wrap the
// SELECT FOR UPDATE + UPDATE pair in a transaction when the repository
// runs against a pool rather than an existing transaction.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgUniqueViolation is the PostgreSQL unique_violation error code.
const pgUniqueViolation = "23505"

const submissionColumns = `id, title, authors, content, professor_email, status, feedback, submitted_at, updated_at`

// Compile-time interface verification.
var _ SubmissionRepository = (*PgSubmissionRepository)(nil)

// PgSubmissionRepository is a PostgreSQL implementation of SubmissionRepository.
type PgSubmissionRepository struct {
	db DBTX
}

// NewPgSubmissionRepository creates a new PostgreSQL submission repository.
func NewPgSubmissionRepository(db DBTX) *PgSubmissionRepository {
	return &PgSubmissionRepository{db: db}
}

// Create inserts a new submission.
func (r *PgSubmissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	if submission == nil {
		return domain.NewValidationError("submission", "submission cannot be nil")
	}
	if submission.ID == "" {
		return domain.NewValidationError("id", "submission ID is required")
	}
	if submission.Title == "" {
		return domain.NewValidationError("title", "title is required")
	}
	if submission.ProfessorEmail == "" {
		return domain.NewValidationError("professor_email", "professor email is required")
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		submission.ID, submission.Title, submission.Authors,
		submission.Content, submission.ProfessorEmail, submission.Status,
		nullString(submission.Feedback),
		submission.SubmittedAt, submission.UpdatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("submission %s already exists: %w", submission.ID, domain.ErrInvalidArgument)
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// Get retrieves a submission by id.
func (r *PgSubmissionRepository) Get(ctx context.Context, id string) (*domain.Submission, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "submission ID is required")
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	submission, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("submission", id)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return submission, nil
}

// List retrieves submissions matching the filter, newest first.
func (r *PgSubmissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]*domain.Submission, int64, error) {
	applyPaginationDefaults(&filter.Limit, &filter.Offset)

	conditions := []string{"TRUE"}
	args := []interface{}{}
	argIndex := 1

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, s)
			argIndex++
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.ProfessorEmail != "" {
		conditions = append(conditions, fmt.Sprintf("professor_email = $%d", argIndex))
		args = append(args, filter.ProfessorEmail)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM submissions WHERE %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE %s
		ORDER BY submitted_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]*domain.Submission, 0, filter.Limit)
	for rows.Next() {
		submission, err := scanSubmissionFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating submissions: %w", err)
	}

	return submissions, totalCount, nil
}

// UpdateStatus transitions the submission and records the feedback. The
// SELECT FOR UPDATE + UPDATE pair runs in a transaction so concurrent
// transitions on the same submission serialize instead of racing.
func (r *PgSubmissionRepository) UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus, feedback string) (*domain.Submission, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "submission ID is required")
	}
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	if beginner, ok := r.db.(txBeginner); ok {
		tx, err := beginner.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction for status update: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		txRepo := &PgSubmissionRepository{db: tx}
		submission, err := txRepo.updateStatusInTx(ctx, id, status, feedback)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit status update: %w", err)
		}
		return submission, nil
	}

	// Already running within a transaction.
	return r.updateStatusInTx(ctx, id, status, feedback)
}

// updateStatusInTx performs the locked read-check-write. Must run inside a
// transaction for the row lock to be meaningful.
func (r *PgSubmissionRepository) updateStatusInTx(ctx context.Context, id string, status domain.SubmissionStatus, feedback string) (*domain.Submission, error) {
	selectQuery := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 FOR UPDATE`

	rows, err := r.db.Query(ctx, selectQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query submission for update: %w", err)
	}

	submission, err := scanSubmissionRows(rows)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("submission", id)
		}
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	if !submission.CanTransitionTo(status) {
		return nil, domain.NewTransitionError(id, submission.Status, status)
	}

	submission.Status = status
	if feedback != "" {
		submission.Feedback = feedback
	}
	submission.UpdatedAt = time.Now().UTC()

	updateQuery := `
		UPDATE submissions
		SET status = $1, feedback = $2, updated_at = $3
		WHERE id = $4`

	if _, err := r.db.Exec(ctx, updateQuery,
		submission.Status, nullString(submission.Feedback), submission.UpdatedAt, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update submission status: %w", err)
	}

	return submission, nil
}

// isPgUniqueViolation checks for a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// submissionScanDest holds the destination pointers for scanning a
// submission row.
type submissionScanDest struct {
	submission domain.Submission
	feedback   *string
}

func (d *submissionScanDest) destinations() []interface{} {
	return []interface{}{
		&d.submission.ID, &d.submission.Title, &d.submission.Authors,
		&d.submission.Content, &d.submission.ProfessorEmail, &d.submission.Status,
		&d.feedback, &d.submission.SubmittedAt, &d.submission.UpdatedAt,
	}
}

func (d *submissionScanDest) finalize() *domain.Submission {
	if d.feedback != nil {
		d.submission.Feedback = *d.feedback
	}
	return &d.submission
}

// scanSubmission scans a single pgx.Row.
func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var dest submissionScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize(), nil
}

// scanSubmissionRows consumes one row from pgx.Rows and closes it. Used
// with SELECT FOR UPDATE which returns Rows instead of Row.
func scanSubmissionRows(rows pgx.Rows) (*domain.Submission, error) {
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	return scanSubmissionFromRows(rows)
}

// scanSubmissionFromRows scans the current row from pgx.Rows.
func scanSubmissionFromRows(rows pgx.Rows) (*domain.Submission, error) {
	var dest submissionScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize(), nil
}

// nullString returns a pointer to the string if non-empty, otherwise nil.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
