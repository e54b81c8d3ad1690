package handler

import (
	"context"
	"net/http"
	"strings"
)

// ReminderTester はテストリマインダーの送信を行う。
// reminder.Dispatcherが実装する。
type ReminderTester interface {
	SendTest(ctx context.Context, to string) error
}

// ReminderHandler はリマインダー関連のHTTPハンドラー。
type ReminderHandler struct {
	tester ReminderTester
}

// NewReminderHandler はReminderHandlerを生成する。
func NewReminderHandler(tester ReminderTester) *ReminderHandler {
	return &ReminderHandler{tester: tester}
}

type sendTestRequest struct {
	To string `json:"to" validate:"required,email"`
}

type sendTestResponse struct {
	Status string `json:"status"`
	To     string `json:"to"`
}

// SendTest は指定アドレスにテストリマインダーを送信する。面接データは変更しない。
// POST /api/reminders/test
func (h *ReminderHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req sendTestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.To = strings.TrimSpace(req.To)

	if apiErr := validateRequest(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.tester.SendTest(r.Context(), req.To); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendTestResponse{Status: "sent", To: req.To})
}
