package reminder

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/interviewtracker/internal/model"
	"github.com/hitoshi/interviewtracker/internal/notify"
	"github.com/hitoshi/interviewtracker/internal/repository"
)

// memInterviewRepo はInterviewRepositoryのインメモリ実装。
// FindDueUnnotifiedとMarkNotifiedはPostgreSQL実装と同じ条件で動作する。
type memInterviewRepo struct {
	mu         sync.Mutex
	interviews map[string]*model.Interview

	findDueErr error
	markErr    map[string]error
	queries    [][2]time.Time
}

func newMemInterviewRepo(ivs ...*model.Interview) *memInterviewRepo {
	r := &memInterviewRepo{interviews: map[string]*model.Interview{}, markErr: map[string]error{}}
	for _, iv := range ivs {
		r.interviews[iv.ID] = iv
	}
	return r
}

func (r *memInterviewRepo) get(id string) *model.Interview {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.interviews[id]
	return &cp
}

func (r *memInterviewRepo) Create(_ context.Context, iv *model.Interview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interviews[iv.ID] = iv
	return nil
}

func (r *memInterviewRepo) CreateBatch(ctx context.Context, ivs []*model.Interview) error {
	for _, iv := range ivs {
		if err := r.Create(ctx, iv); err != nil {
			return err
		}
	}
	return nil
}

func (r *memInterviewRepo) ListByUserID(_ context.Context, userID string) ([]*model.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Interview
	for _, iv := range r.interviews {
		if iv.UserID == userID {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (r *memInterviewRepo) FindByIDAndUserID(_ context.Context, id, userID string) (*model.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if iv, ok := r.interviews[id]; ok && iv.UserID == userID {
		return iv, nil
	}
	return nil, nil
}

func (r *memInterviewRepo) Update(_ context.Context, iv *model.Interview) error {
	return errors.New("not implemented")
}

func (r *memInterviewRepo) Delete(_ context.Context, id, userID string) error {
	return errors.New("not implemented")
}

func (r *memInterviewRepo) FindDueUnnotified(_ context.Context, start, end time.Time) ([]*model.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, [2]time.Time{start, end})
	if r.findDueErr != nil {
		return nil, r.findDueErr
	}
	var out []*model.Interview
	for _, iv := range r.interviews {
		if !iv.ScheduledAt.Before(start) && iv.ScheduledAt.Before(end) && iv.ReminderSentAt == nil {
			cp := *iv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *memInterviewRepo) MarkNotified(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markErr[id]; err != nil {
		return false, err
	}
	iv, ok := r.interviews[id]
	if !ok || iv.ReminderSentAt != nil {
		return false, nil
	}
	t := at
	iv.ReminderSentAt = &t
	return true, nil
}

// memUserRepo はUserRepositoryのインメモリ実装。
type memUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.User
	findErr error
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.users[id], nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.users[user.ID] = user
	return nil
}

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

// mockNotifier は送信内容を記録するNotifier。sendFnで失敗を注入できる。
type mockNotifier struct {
	mu     sync.Mutex
	sent   []sentMessage
	sendFn func(ctx context.Context, to, subject, body string) error
}

func (n *mockNotifier) Send(ctx context.Context, to, subject, body string) error {
	if n.sendFn != nil {
		if err := n.sendFn(ctx, to, subject, body); err != nil {
			return err
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (n *mockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type mockMetrics struct {
	mu       sync.Mutex
	sent     int
	failures []string
	sweeps   []int
	skipped  int
}

func (m *mockMetrics) RecordReminderSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
}

func (m *mockMetrics) RecordReminderFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, reason)
}

func (m *mockMetrics) RecordSweep(_ time.Duration, due int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps = append(m.sweeps, due)
}

func (m *mockMetrics) RecordSweepSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped++
}

var (
	_ repository.InterviewRepository = (*memInterviewRepo)(nil)
	_ repository.UserRepository      = (*memUserRepo)(nil)
	_ notify.Notifier                = (*mockNotifier)(nil)
	_ Metrics                        = (*mockMetrics)(nil)
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func errSend(msg string) error {
	return errors.Join(notify.ErrSendFailed, errors.New(msg))
}
