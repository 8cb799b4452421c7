package engagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/momentohub/MomentoBot/internal/models"
)

type sweepStore struct {
	profiles map[string]models.UserProfile
	listErr  error
}

func newSweepStore() *sweepStore {
	return &sweepStore{profiles: make(map[string]models.UserProfile)}
}

func (m *sweepStore) GetUserProfile(id string) (*models.UserProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *sweepStore) SaveUserProfile(profile models.UserProfile) error {
	m.profiles[profile.ID] = profile
	return nil
}

func (m *sweepStore) ListUsersIdleSince(cutoff time.Time) ([]models.UserProfile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.UserProfile
	for _, p := range m.profiles {
		if p.Status == models.UserStatusActive && p.UpdatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *sweepStore) AddConversationMessages(string, ...models.ConversationMessage) error {
	return nil
}
func (m *sweepStore) GetConversationHistory(string, int) (models.ConversationHistory, error) {
	return models.ConversationHistory{}, nil
}
func (m *sweepStore) ClearConversationHistory(string) error { return nil }
func (m *sweepStore) Close() error                          { return nil }

type recordingSender struct {
	sent []string
	err  error
}

func (s *recordingSender) SendMessage(_ context.Context, to string, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to)
	return nil
}

func TestRunOnceSweepsIdleUsers(t *testing.T) {
	st := newSweepStore()
	now := time.Now()
	st.profiles["idle"] = models.UserProfile{
		ID: "idle", Status: models.UserStatusActive, UpdatedAt: now.Add(-8 * 24 * time.Hour),
	}
	st.profiles["recent"] = models.UserProfile{
		ID: "recent", Status: models.UserStatusActive, UpdatedAt: now.Add(-1 * time.Hour),
	}
	st.profiles["gone"] = models.UserProfile{
		ID: "gone", Status: models.UserStatusInactive, UpdatedAt: now.Add(-30 * 24 * time.Hour),
	}

	sender := &recordingSender{}
	job := NewJob(st, sender)
	job.now = func() time.Time { return now }

	swept := job.RunOnce(context.Background())
	if swept != 1 {
		t.Fatalf("expected 1 user swept, got %d", swept)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "idle" {
		t.Errorf("expected nudge to idle user, got %v", sender.sent)
	}
	if st.profiles["idle"].Status != models.UserStatusInactive {
		t.Errorf("expected idle user marked inactive, got %s", st.profiles["idle"].Status)
	}
	if st.profiles["recent"].Status != models.UserStatusActive {
		t.Errorf("expected recent user untouched, got %s", st.profiles["recent"].Status)
	}
}

func TestRunOnceListFailure(t *testing.T) {
	st := newSweepStore()
	st.listErr = errors.New("db down")
	job := NewJob(st, &recordingSender{})
	if swept := job.RunOnce(context.Background()); swept != 0 {
		t.Errorf("expected 0 swept on list failure, got %d", swept)
	}
}

func TestRunOnceSendFailureStillMarksInactive(t *testing.T) {
	st := newSweepStore()
	now := time.Now()
	st.profiles["idle"] = models.UserProfile{
		ID: "idle", Status: models.UserStatusActive, UpdatedAt: now.Add(-8 * 24 * time.Hour),
	}
	sender := &recordingSender{err: errors.New("channel down")}
	job := NewJob(st, sender)
	job.now = func() time.Time { return now }

	if swept := job.RunOnce(context.Background()); swept != 0 {
		t.Errorf("expected 0 nudged on send failure, got %d", swept)
	}
	if st.profiles["idle"].Status != models.UserStatusInactive {
		t.Errorf("expected user still marked inactive, got %s", st.profiles["idle"].Status)
	}
}
