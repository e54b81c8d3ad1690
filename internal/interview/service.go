// Package interview は面接予定の管理（作成・一覧・更新・削除・一括インポート）を提供する。
// 全ての操作は呼び出し元から渡されたユーザーIDの面接のみを対象とする。
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/interviewtracker/internal/model"
	"github.com/hitoshi/interviewtracker/internal/repository"
	"github.com/hitoshi/interviewtracker/internal/security"
)

// 入力値の上限（文字数）
const (
	MaxCompanyLength = 120
	MaxRoleLength    = 120
	MaxStatusLength  = 40
	MaxNotesLength   = 2000
)

// Input は面接の作成・更新時の入力。
type Input struct {
	Company     string
	Role        string
	ScheduledAt time.Time
	Status      string
	Notes       string
}

// Service は面接管理のサービス層。
type Service struct {
	repo      repository.InterviewRepository
	sanitizer security.TextSanitizerService
	clock     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.InterviewRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		clock:     time.Now,
	}
}

// Create は面接を作成する。ステータス未指定の場合は"Scheduled"になる。
func (s *Service) Create(ctx context.Context, userID string, in Input) (*model.Interview, error) {
	if userID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	clean, err := s.clean(in)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	iv := &model.Interview{
		ID:          uuid.New().String(),
		UserID:      userID,
		Company:     clean.Company,
		Role:        clean.Role,
		ScheduledAt: clean.ScheduledAt,
		Status:      clean.Status,
		Notes:       clean.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, iv); err != nil {
		return nil, fmt.Errorf("面接の作成に失敗しました: %w", err)
	}
	return iv, nil
}

// List はユーザーの面接一覧を面接日時の降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Interview, error) {
	if userID == "" {
		return nil, model.NewUnauthenticatedError()
	}
	ivs, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("面接一覧の取得に失敗しました: %w", err)
	}
	return ivs, nil
}

// Get はユーザーが所有する面接を1件返す。
// 存在しない場合と他ユーザーの面接の場合はどちらもINTERVIEW_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Interview, error) {
	if userID == "" {
		return nil, model.NewUnauthenticatedError()
	}
	canonical, ok := parseInterviewID(id)
	if !ok {
		return nil, model.NewInterviewNotFoundError(id)
	}
	iv, err := s.repo.FindByIDAndUserID(ctx, canonical, userID)
	if err != nil {
		return nil, fmt.Errorf("面接の取得に失敗しました: %w", err)
	}
	if iv == nil {
		return nil, model.NewInterviewNotFoundError(id)
	}
	return iv, nil
}

// Update は面接の内容を置き換える。リマインダー送信済みマーカーは変更しない。
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (*model.Interview, error) {
	iv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	clean, err := s.clean(in)
	if err != nil {
		return nil, err
	}

	iv.Company = clean.Company
	iv.Role = clean.Role
	iv.ScheduledAt = clean.ScheduledAt
	iv.Status = clean.Status
	iv.Notes = clean.Notes
	iv.UpdatedAt = s.clock()

	if err := s.repo.Update(ctx, iv); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewInterviewNotFoundError(id)
		}
		return nil, fmt.Errorf("面接の更新に失敗しました: %w", err)
	}
	return iv, nil
}

// Delete はユーザーが所有する面接を削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return model.NewUnauthenticatedError()
	}
	canonical, ok := parseInterviewID(id)
	if !ok {
		return model.NewInterviewNotFoundError(id)
	}
	if err := s.repo.Delete(ctx, canonical, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewInterviewNotFoundError(id)
		}
		return fmt.Errorf("面接の削除に失敗しました: %w", err)
	}
	return nil
}

// parseInterviewID はIDをUUIDの正規形に変換する。
// UUIDとして解釈できないIDに一致する面接は存在しない。
func parseInterviewID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// Import は一括インポートを行い、取り込んだ件数を返す。
//   - 会社名または職種が空の行はスキップする
//   - 上限を超える行はスキップする
//   - 日時が空または解釈できない場合は現在時刻を使う
//
// 取り込む行はすべて同一トランザクションで保存する。
func (s *Service) Import(ctx context.Context, userID string, rows []model.InterviewImportRow) (int, error) {
	if userID == "" {
		return 0, model.NewUnauthenticatedError()
	}

	now := s.clock()
	toSave := make([]*model.Interview, 0, len(rows))
	skipped := 0

	for _, row := range rows {
		clean, err := s.clean(Input{
			Company:     row.Company,
			Role:        row.Role,
			ScheduledAt: parseImportDate(row.InterviewDate, now),
			Status:      row.Status,
			Notes:       row.Notes,
		})
		if err != nil {
			skipped++
			continue
		}

		toSave = append(toSave, &model.Interview{
			ID:          uuid.New().String(),
			UserID:      userID,
			Company:     clean.Company,
			Role:        clean.Role,
			ScheduledAt: clean.ScheduledAt,
			Status:      clean.Status,
			Notes:       clean.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := s.repo.CreateBatch(ctx, toSave); err != nil {
		return 0, fmt.Errorf("面接の一括インポートに失敗しました: %w", err)
	}

	slog.Info("面接をインポートしました",
		slog.String("user_id", userID),
		slog.Int("imported", len(toSave)),
		slog.Int("skipped", skipped),
	)
	return len(toSave), nil
}

// clean は入力値からマークアップを除去し、必須項目と上限を検証する。
func (s *Service) clean(in Input) (Input, error) {
	out := Input{
		Company:     s.sanitizer.Sanitize(in.Company),
		Role:        s.sanitizer.Sanitize(in.Role),
		ScheduledAt: in.ScheduledAt,
		Status:      s.sanitizer.Sanitize(in.Status),
		Notes:       s.sanitizer.Sanitize(in.Notes),
	}

	if out.Company == "" {
		return Input{}, model.NewValidationError("company は必須です")
	}
	if out.Role == "" {
		return Input{}, model.NewValidationError("role は必須です")
	}
	if out.ScheduledAt.IsZero() {
		return Input{}, model.NewValidationError("interviewDate は必須です")
	}
	if out.Status == "" {
		out.Status = model.DefaultInterviewStatus
	}

	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"company", out.Company, MaxCompanyLength},
		{"role", out.Role, MaxRoleLength},
		{"status", out.Status, MaxStatusLength},
		{"notes", out.Notes, MaxNotesLength},
	} {
		if utf8.RuneCountInString(f.value) > f.max {
			return Input{}, model.NewValidationError(fmt.Sprintf("%s は%d文字以内で入力してください", f.name, f.max))
		}
	}

	return out, nil
}

// importDateLayouts はインポート行で受け付ける日時形式。
// タイムゾーン指定のない形式はUTCとして扱う。
var importDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// parseImportDate はインポート行の日時を解釈する。
// 空または解釈できない場合はfallbackを返す。
func parseImportDate(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}
