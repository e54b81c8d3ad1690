package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/interviewtracker/internal/interview"
	"github.com/hitoshi/interviewtracker/internal/model"
)

// maxImportRows は1回の一括インポートで受け付ける最大行数。
const maxImportRows = 1000

// InterviewServiceInterface は面接ハンドラーが必要とするサービスインターフェース。
type InterviewServiceInterface interface {
	Create(ctx context.Context, userID string, in interview.Input) (*model.Interview, error)
	List(ctx context.Context, userID string) ([]*model.Interview, error)
	Get(ctx context.Context, userID, id string) (*model.Interview, error)
	Update(ctx context.Context, userID, id string, in interview.Input) (*model.Interview, error)
	Delete(ctx context.Context, userID, id string) error
	Import(ctx context.Context, userID string, rows []model.InterviewImportRow) (int, error)
}

// InterviewHandler は面接管理のHTTPハンドラー。
type InterviewHandler struct {
	service InterviewServiceInterface
}

// NewInterviewHandler はInterviewHandlerを生成する。
func NewInterviewHandler(service InterviewServiceInterface) *InterviewHandler {
	return &InterviewHandler{service: service}
}

// interviewRequest は作成・更新リクエストのボディ。
// 文字数の上限はサービス層でマークアップ除去後に検証する。
type interviewRequest struct {
	Company       string    `json:"company" validate:"required"`
	Role          string    `json:"role" validate:"required"`
	InterviewDate time.Time `json:"interviewDate" validate:"required"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes"`
}

func (req interviewRequest) toInput() interview.Input {
	return interview.Input{
		Company:     req.Company,
		Role:        req.Role,
		ScheduledAt: req.InterviewDate,
		Status:      req.Status,
		Notes:       req.Notes,
	}
}

// importRowRequest は一括インポートの1行。日時は文字列のまま受け取る。
type importRowRequest struct {
	Company       string `json:"company"`
	Role          string `json:"role"`
	InterviewDate string `json:"interviewDate"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
}

type interviewResponse struct {
	ID             string     `json:"id"`
	Company        string     `json:"company"`
	Role           string     `json:"role"`
	InterviewDate  time.Time  `json:"interviewDate"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes"`
	ReminderSentAt *time.Time `json:"reminderSentAt"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

// Create は面接を作成する。
// POST /api/interviews
func (h *InterviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req interviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := validateRequest(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	iv, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toInterviewResponse(iv))
}

// List はログインユーザーの面接一覧を返す。
// GET /api/interviews
func (h *InterviewHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	ivs, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]interviewResponse, 0, len(ivs))
	for _, iv := range ivs {
		resp = append(resp, toInterviewResponse(iv))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は面接を1件返す。
// GET /api/interviews/{id}
func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	iv, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInterviewResponse(iv))
}

// Update は面接を更新する。
// PUT /api/interviews/{id}
func (h *InterviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req interviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := validateRequest(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	iv, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInterviewResponse(iv))
}

// Delete は面接を削除する。
// DELETE /api/interviews/{id}
func (h *InterviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Import は面接を一括インポートする。ボディは行オブジェクトのJSON配列。
// POST /api/interviews/import
func (h *InterviewHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req []importRowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req) > maxImportRows {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError(fmt.Sprintf("一度にインポートできるのは%d行までです", maxImportRows)))
		return
	}

	rows := make([]model.InterviewImportRow, len(req))
	for i, row := range req {
		rows[i] = model.InterviewImportRow(row)
	}

	n, err := h.service.Import(r.Context(), userID, rows)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{Imported: n})
}

func toInterviewResponse(iv *model.Interview) interviewResponse {
	return interviewResponse{
		ID:             iv.ID,
		Company:        iv.Company,
		Role:           iv.Role,
		InterviewDate:  iv.ScheduledAt,
		Status:         iv.Status,
		Notes:          iv.Notes,
		ReminderSentAt: iv.ReminderSentAt,
	}
}
