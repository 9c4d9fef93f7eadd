package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

type SubmissionRepository struct {
	Db *sqlx.DB
}

type submissionRow struct {
	Id        string `db:"id"`
	Payload   string `db:"payload"`
	Status    string `db:"status"`
	CreatedAt int64  `db:"created_at"`
}

func (r *SubmissionRepository) CreateTables() error {
	schema := `CREATE TABLE IF NOT EXISTS submissions (
		id			text NOT NULL PRIMARY KEY,
		payload		text,
		status		text,
		created_at	integer);
	CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at);`
	_, err := r.Db.Exec(schema)
	if err == nil {
		slog.Debug("Submissions table created")
	} else {
		slog.Error("Create table error", "error", err)
	}
	return err
}

func (r *SubmissionRepository) Create(ctx context.Context, submission Submission) (*Submission, error) {
	insertSql := `INSERT INTO submissions (
		id,
		payload,
		status,
		created_at
	) VALUES (
		$1,
		$2,
		$3,
		$4
	);`
	_, err := r.Db.ExecContext(ctx, insertSql,
		submission.Id,
		submission.Payload,
		submission.Status,
		submission.CreatedAt.Unix(),
	)
	if err != nil {
		slog.Error("Error creating submission", "error", err)
		return nil, err
	}
	return &submission, nil
}

func (r *SubmissionRepository) FindById(ctx context.Context, id string) (*Submission, error) {
	query := `SELECT id, payload, status, created_at
		FROM submissions WHERE id = $1`
	var row submissionRow
	err := r.Db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	submission := parseRow(row)
	return &submission, nil
}

func (r *SubmissionRepository) FindAll(ctx context.Context, limit int) ([]Submission, error) {
	query := `SELECT id, payload, status, created_at
		FROM submissions ORDER BY created_at DESC, id LIMIT $1`
	var rows []submissionRow
	err := r.Db.SelectContext(ctx, &rows, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	submissions := make([]Submission, len(rows))
	for i, row := range rows {
		submissions[i] = parseRow(row)
	}
	return submissions, nil
}

func (r *SubmissionRepository) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := r.Db.GetContext(ctx, &count, `SELECT COUNT(*) FROM submissions`)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func parseRow(row submissionRow) Submission {
	return Submission{
		Id:        row.Id,
		Payload:   row.Payload,
		Status:    row.Status,
		CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
	}
}
