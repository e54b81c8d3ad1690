// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/interviewtracker/internal/model"
)

var (
	// ErrDuplicateEmail はメールアドレスの一意制約に違反した場合に返される。
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrNotFound は更新・削除の対象行が存在しない場合に返される。
	ErrNotFound = errors.New("record not found")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に存在する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// InterviewRepository は面接データの永続化インターフェース。
// すべての参照・更新はユーザーIDで所有者を限定する（リマインダー走査を除く）。
type InterviewRepository interface {
	// Create は面接を作成する。
	Create(ctx context.Context, interview *model.Interview) error

	// CreateBatch は複数の面接を同一トランザクションで作成する。
	CreateBatch(ctx context.Context, interviews []*model.Interview) error

	// ListByUserID はユーザーの面接一覧を面接日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Interview, error)

	// FindByIDAndUserID はユーザーが所有する面接を取得する。見つからない場合はnilを返す。
	FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Interview, error)

	// Update は面接の内容を更新する。reminder_sent_atは変更しない。
	// 対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, interview *model.Interview) error

	// Delete はユーザーが所有する面接を削除する。
	// 対象が存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id, userID string) error

	// FindDueUnnotified は start <= scheduled_at < end かつリマインダー未送信の面接を
	// 面接日時の昇順で返す。
	FindDueUnnotified(ctx context.Context, start, end time.Time) ([]*model.Interview, error)

	// MarkNotified はリマインダー送信済みとして記録する。
	// 既に記録済みの場合は何も変更せずfalseを返す。
	MarkNotified(ctx context.Context, id string, at time.Time) (bool, error)
}
