package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/interviewtracker/internal/model"
)

const interviewColumns = `id, user_id, company, role, scheduled_at, status, notes, reminder_sent_at, created_at, updated_at`

// PostgresInterviewRepo はPostgreSQLを使用した面接リポジトリ。
type PostgresInterviewRepo struct {
	db *sql.DB
}

// NewPostgresInterviewRepo はPostgresInterviewRepoを生成する。
func NewPostgresInterviewRepo(db *sql.DB) *PostgresInterviewRepo {
	return &PostgresInterviewRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterview(s rowScanner) (*model.Interview, error) {
	iv := &model.Interview{}
	var sentAt sql.NullTime
	if err := s.Scan(
		&iv.ID, &iv.UserID, &iv.Company, &iv.Role, &iv.ScheduledAt,
		&iv.Status, &iv.Notes, &sentAt, &iv.CreatedAt, &iv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if sentAt.Valid {
		t := sentAt.Time
		iv.ReminderSentAt = &t
	}
	return iv, nil
}

const insertInterviewSQL = `INSERT INTO interviews (id, user_id, company, role, scheduled_at, status, notes, created_at, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Create は面接を作成する。
func (r *PostgresInterviewRepo) Create(ctx context.Context, iv *model.Interview) error {
	_, err := r.db.ExecContext(ctx, insertInterviewSQL,
		iv.ID, iv.UserID, iv.Company, iv.Role, iv.ScheduledAt, iv.Status, iv.Notes, iv.CreatedAt, iv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interview: %w", err)
	}
	return nil
}

// CreateBatch は複数の面接を同一トランザクションで作成する。
// いずれかの挿入に失敗した場合は全件ロールバックする。
func (r *PostgresInterviewRepo) CreateBatch(ctx context.Context, ivs []*model.Interview) error {
	if len(ivs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertInterviewSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare interview insert: %w", err)
	}
	defer stmt.Close()

	for _, iv := range ivs {
		if _, err := stmt.ExecContext(ctx,
			iv.ID, iv.UserID, iv.Company, iv.Role, iv.ScheduledAt, iv.Status, iv.Notes, iv.CreatedAt, iv.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert imported interview: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの面接一覧を面接日時の降順で返す。
func (r *PostgresInterviewRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Interview, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE user_id = $1 ORDER BY scheduled_at DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	ivs := []*model.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview row: %w", err)
		}
		ivs = append(ivs, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interviews: %w", err)
	}
	return ivs, nil
}

// FindByIDAndUserID はユーザーが所有する面接を取得する。見つからない場合はnilを返す。
func (r *PostgresInterviewRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Interview, error) {
	iv, err := scanInterview(r.db.QueryRowContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find interview by ID: %w", err)
	}
	return iv, nil
}

// Update は面接の内容を更新する。reminder_sent_atは更新対象に含めない。
func (r *PostgresInterviewRepo) Update(ctx context.Context, iv *model.Interview) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE interviews
		 SET company = $1, role = $2, scheduled_at = $3, status = $4, notes = $5, updated_at = $6
		 WHERE id = $7 AND user_id = $8`,
		iv.Company, iv.Role, iv.ScheduledAt, iv.Status, iv.Notes, iv.UpdatedAt, iv.ID, iv.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update interview: %w", err)
	}
	return requireAffected(result)
}

// Delete はユーザーが所有する面接を削除する。
func (r *PostgresInterviewRepo) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM interviews WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete interview: %w", err)
	}
	return requireAffected(result)
}

// FindDueUnnotified はリマインダー対象の面接を面接日時の昇順で返す。
// 部分インデックス idx_interviews_reminder_due を利用する。
func (r *PostgresInterviewRepo) FindDueUnnotified(ctx context.Context, start, end time.Time) ([]*model.Interview, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE scheduled_at >= $1 AND scheduled_at < $2 AND reminder_sent_at IS NULL
		 ORDER BY scheduled_at ASC`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find due interviews: %w", err)
	}
	defer rows.Close()

	var ivs []*model.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due interview row: %w", err)
		}
		ivs = append(ivs, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due interviews: %w", err)
	}
	return ivs, nil
}

// MarkNotified はreminder_sent_atを記録する。
// reminder_sent_at IS NULL の行のみを更新するため、一度記録された値は上書きされない。
func (r *PostgresInterviewRepo) MarkNotified(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE interviews SET reminder_sent_at = $1
		 WHERE id = $2 AND reminder_sent_at IS NULL`,
		at, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark interview notified: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ InterviewRepository = (*PostgresInterviewRepo)(nil)
