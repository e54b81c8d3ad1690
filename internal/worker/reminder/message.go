package reminder

import (
	"strings"
	"time"

	"github.com/hitoshi/interviewtracker/internal/model"
)

// whenLayout はリマインダー本文の日時表記。例: "Sun, Mar 2 2025 at 9:00 AM UTC"
const whenLayout = "Mon, Jan 2 2006 at 3:04 PM MST"

const (
	testSubject = "Test Reminder: Interview Tracker"
	testBody    = "If you received this, reminder e-mail delivery is working.\n\n— Interview Tracker"
)

// Message は送信するリマインダーの件名と本文。
type Message struct {
	Subject string
	Body    string
}

// RenderReminder は面接1件分のリマインダーを組み立てる。
// 同じ面接と表示タイムゾーンに対して常に同じ内容を返す。メモが空白のみの場合はメモ欄を省略する。
func RenderReminder(iv *model.Interview, loc *time.Location) Message {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString("Reminder: You have an interview coming up.\n\n")
	b.WriteString("Company: " + iv.Company + "\n")
	b.WriteString("Role: " + iv.Role + "\n")
	b.WriteString("When: " + iv.ScheduledAt.In(loc).Format(whenLayout) + "\n\n")
	if strings.TrimSpace(iv.Notes) != "" {
		b.WriteString("Notes:\n" + iv.Notes + "\n\n")
	}
	b.WriteString("— Interview Tracker")

	return Message{
		Subject: "Interview Reminder: " + iv.Company + " — " + iv.Role,
		Body:    b.String(),
	}
}
