package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

func newTestSubmission() *domain.Submission {
	now := time.Now().UTC()
	return &domain.Submission{
		ID:             "6f1a2b3c-0000-0000-0000-000000000001",
		Title:          "Attention Is Not All You Need",
		Authors:        []string{"Ada Lovelace", "Alan Turing"},
		Content:        "Abstract. Introduction. Methods.",
		ProfessorEmail: "prof@example.edu",
		Status:         domain.SubmissionStatusSubmitted,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}
}

func submissionRows(s *domain.Submission) *pgxmock.Rows {
	var feedback *string
	if s.Feedback != "" {
		feedback = &s.Feedback
	}
	return pgxmock.NewRows([]string{
		"id", "title", "authors", "content", "professor_email",
		"status", "feedback", "submitted_at", "updated_at",
	}).AddRow(
		s.ID, s.Title, s.Authors, s.Content, s.ProfessorEmail,
		s.Status, feedback, s.SubmittedAt, s.UpdatedAt,
	)
}

func TestPgSubmissionRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates submission successfully", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)
		submission := newTestSubmission()

		mock.ExpectExec("INSERT INTO submissions").
			WithArgs(
				submission.ID, submission.Title, submission.Authors,
				submission.Content, submission.ProfessorEmail, submission.Status,
				pgxmock.AnyArg(), submission.SubmittedAt, submission.UpdatedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, submission))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns validation error for nil submission", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)
		err = repo.Create(ctx, nil)

		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})

	t.Run("returns validation error for missing fields", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)

		submission := newTestSubmission()
		submission.Title = ""
		assert.ErrorIs(t, repo.Create(ctx, submission), domain.ErrInvalidArgument)

		submission = newTestSubmission()
		submission.ProfessorEmail = ""
		assert.ErrorIs(t, repo.Create(ctx, submission), domain.ErrInvalidArgument)
	})

	t.Run("duplicate id maps to invalid argument", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)
		submission := newTestSubmission()

		mock.ExpectExec("INSERT INTO submissions").
			WithArgs(
				submission.ID, submission.Title, submission.Authors,
				submission.Content, submission.ProfessorEmail, submission.Status,
				pgxmock.AnyArg(), submission.SubmittedAt, submission.UpdatedAt,
			).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err = repo.Create(ctx, submission)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "already exists")
	})
}

func TestPgSubmissionRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns submission", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)
		submission := newTestSubmission()

		mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id").
			WithArgs(submission.ID).
			WillReturnRows(submissionRows(submission))

		got, err := repo.Get(ctx, submission.ID)
		require.NoError(t, err)
		assert.Equal(t, submission.Title, got.Title)
		assert.Equal(t, submission.Authors, got.Authors)
		assert.Equal(t, domain.SubmissionStatusSubmitted, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)

		mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty id rejected without query", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)

		_, err = repo.Get(ctx, "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgSubmissionRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists with status filter", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)
		submission := newTestSubmission()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM submissions").
			WithArgs(domain.SubmissionStatusSubmitted).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
		mock.ExpectQuery("SELECT (.+) FROM submissions").
			WithArgs(domain.SubmissionStatusSubmitted, 50, 0).
			WillReturnRows(submissionRows(submission))

		submissions, total, err := repo.List(ctx, SubmissionFilter{
			Status: []domain.SubmissionStatus{domain.SubmissionStatusSubmitted},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, submissions, 1)
		assert.Equal(t, submission.ID, submissions[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clamps pagination", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM submissions").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectQuery("SELECT (.+) FROM submissions").
			WithArgs(maxFilterLimit, 0).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "title", "authors", "content", "professor_email",
				"status", "feedback", "submitted_at", "updated_at",
			}))

		_, _, err = repo.List(ctx, SubmissionFilter{Limit: 99999, Offset: -5})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgSubmissionRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("transitions and records feedback", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)
		submission := newTestSubmission()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id = \\$1 FOR UPDATE").
			WithArgs(submission.ID).
			WillReturnRows(submissionRows(submission))
		mock.ExpectExec("UPDATE submissions").
			WithArgs(domain.SubmissionStatusUnderReview, pgxmock.AnyArg(), pgxmock.AnyArg(), submission.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		got, err := repo.UpdateStatus(ctx, submission.ID, domain.SubmissionStatusUnderReview, "looks promising")
		require.NoError(t, err)
		assert.Equal(t, domain.SubmissionStatusUnderReview, got.Status)
		assert.Equal(t, "looks promising", got.Feedback)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal status rejects transition", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)
		submission := newTestSubmission()
		submission.Status = domain.SubmissionStatusAccepted

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id = \\$1 FOR UPDATE").
			WithArgs(submission.ID).
			WillReturnRows(submissionRows(submission))
		mock.ExpectRollback()

		_, err = repo.UpdateStatus(ctx, submission.ID, domain.SubmissionStatusUnderReview, "")
		require.Error(t, err)

		var transitionErr *domain.TransitionError
		require.True(t, errors.As(err, &transitionErr))
		assert.Equal(t, domain.SubmissionStatusAccepted, transitionErr.From)
		assert.Equal(t, domain.SubmissionStatusUnderReview, transitionErr.To)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing submission maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id = \\$1 FOR UPDATE").
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "title", "authors", "content", "professor_email",
				"status", "feedback", "submitted_at", "updated_at",
			}))
		mock.ExpectRollback()

		_, err = repo.UpdateStatus(ctx, "missing", domain.SubmissionStatusUnderReview, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown status rejected without query", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgSubmissionRepository(mock)

		_, err = repo.UpdateStatus(ctx, "sub-1", domain.SubmissionStatus("archived"), "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
