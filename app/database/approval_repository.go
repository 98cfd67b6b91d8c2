package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ ApprovalRepository = (*SQLiteApprovalRepository)(nil)

// SQLiteApprovalRepository stores approvals in the embedded sqlite database.
type SQLiteApprovalRepository struct {
	db *DB
}

func NewSQLiteApprovalRepository(db *DB) *SQLiteApprovalRepository {
	return &SQLiteApprovalRepository{db: db}
}

const approvalColumns = `thread_id, poster_id, channel_id, score, review_text, virality_tier, caption, created_at`

func (r *SQLiteApprovalRepository) UpsertApproval(ctx context.Context, approval Approval) error {
	if approval.ThreadID == "" {
		return fmt.Errorf("approval thread id is required")
	}
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_approvals (`+approvalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (thread_id) DO UPDATE SET
			poster_id = excluded.poster_id,
			channel_id = excluded.channel_id,
			score = excluded.score,
			review_text = excluded.review_text,
			virality_tier = excluded.virality_tier,
			caption = excluded.caption,
			created_at = excluded.created_at
	`,
		approval.ThreadID,
		approval.PosterID,
		approval.ChannelID,
		nullInt(approval.Score),
		approval.ReviewText,
		nullString(approval.ViralityTier),
		nullString(approval.Caption),
		approval.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert approval: %w", err)
	}

	return nil
}

func (r *SQLiteApprovalRepository) GetApproval(ctx context.Context, threadID string) (*Approval, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM pending_approvals WHERE thread_id = ?`, threadID)

	approval, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}

	return approval, nil
}

func (r *SQLiteApprovalRepository) DeleteApproval(ctx context.Context, threadID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_approvals WHERE thread_id = ?`, threadID)
	if err != nil {
		return false, fmt.Errorf("failed to delete approval: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *SQLiteApprovalRepository) ListApprovals(ctx context.Context) ([]Approval, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+approvalColumns+` FROM pending_approvals ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()

	var approvals []Approval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		approvals = append(approvals, *approval)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate approvals: %w", err)
	}

	return approvals, nil
}

func (r *SQLiteApprovalRepository) DeleteApprovalsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_approvals WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge approvals: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(affected), nil
}

func (r *SQLiteApprovalRepository) GetApprovalCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_approvals`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count approvals: %w", err)
	}
	return count, nil
}

func (r *SQLiteApprovalRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row rowScanner) (*Approval, error) {
	var (
		approval  Approval
		score     sql.NullInt64
		tier      sql.NullString
		caption   sql.NullString
		createdAt int64
	)

	err := row.Scan(
		&approval.ThreadID,
		&approval.PosterID,
		&approval.ChannelID,
		&score,
		&approval.ReviewText,
		&tier,
		&caption,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if score.Valid {
		value := int(score.Int64)
		approval.Score = &value
	}
	approval.ViralityTier = tier.String
	approval.Caption = caption.String
	approval.CreatedAt = time.UnixMilli(createdAt)

	return &approval, nil
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
