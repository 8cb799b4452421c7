package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/momentohub/MomentoBot/internal/assessment"
	"github.com/momentohub/MomentoBot/internal/models"
)

// apiStore is an in-memory store for API tests.
type apiStore struct {
	profiles map[string]models.UserProfile
}

func (m *apiStore) GetUserProfile(id string) (*models.UserProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *apiStore) SaveUserProfile(profile models.UserProfile) error {
	m.profiles[profile.ID] = profile
	return nil
}

func (m *apiStore) ListUsersIdleSince(time.Time) ([]models.UserProfile, error) { return nil, nil }
func (m *apiStore) AddConversationMessages(string, ...models.ConversationMessage) error {
	return nil
}
func (m *apiStore) GetConversationHistory(string, int) (models.ConversationHistory, error) {
	return models.ConversationHistory{}, nil
}
func (m *apiStore) ClearConversationHistory(string) error { return nil }
func (m *apiStore) Close() error                          { return nil }

type noopAnalyzer struct{}

func (noopAnalyzer) Analyze(_ context.Context, _ string, _ models.AssessmentDefinition, answers map[string]string, _ map[string]map[string]any) (map[string]any, []string, error) {
	fields := make(map[string]any, len(answers))
	for k, v := range answers {
		fields[k] = v
	}
	return fields, []string{}, nil
}

func newTestServer() *Server {
	st := &apiStore{profiles: make(map[string]models.UserProfile)}
	engine := assessment.NewEngine(assessment.NewCatalog(), st, noopAnalyzer{})
	return NewServer(engine)
}

func doRequest(t *testing.T, server *Server, method, path, body string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid JSON envelope: %v (%s)", err, rec.Body.String())
	}
	return rec, envelope
}

func TestHealth(t *testing.T) {
	rec, envelope := doRequest(t, newTestServer(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if envelope.Status != string(models.APIStatusOK) {
		t.Errorf("expected ok status, got %s", envelope.Status)
	}
}

func TestListAssessments(t *testing.T) {
	rec, envelope := doRequest(t, newTestServer(), http.MethodGet, "/assessments", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list, ok := envelope.Result.([]any)
	if !ok || len(list) == 0 {
		t.Fatalf("expected non-empty assessment list, got %v", envelope.Result)
	}
}

func TestStartAssessment(t *testing.T) {
	server := newTestServer()
	rec, envelope := doRequest(t, server, http.MethodPost, "/assessments/simulateProfit/start", `{"user_id":"u1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result, ok := envelope.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected result object, got %v", envelope.Result)
	}
	if result["status"] != string(models.AssessmentStatusStarted) {
		t.Errorf("expected started, got %v", result["status"])
	}
}

func TestStartUnknownAssessmentIs404(t *testing.T) {
	rec, _ := doRequest(t, newTestServer(), http.MethodPost, "/assessments/nope/start", `{"user_id":"u1"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStartRequiresUserID(t *testing.T) {
	rec, _ := doRequest(t, newTestServer(), http.MethodPost, "/assessments/simulateProfit/start", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAnswerWithoutActiveAssessmentIs400(t *testing.T) {
	rec, _ := doRequest(t, newTestServer(), http.MethodPost, "/assessments/simulateProfit/answer",
		`{"user_id":"u1","answer":"5000"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAnswerFlow(t *testing.T) {
	server := newTestServer()
	doRequest(t, server, http.MethodPost, "/assessments/simulateProfit/start", `{"user_id":"u1"}`)

	rec, envelope := doRequest(t, server, http.MethodPost, "/assessments/simulateProfit/answer",
		`{"user_id":"u1","answer":"5000","step_key":"monthly_revenue"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := envelope.Result.(map[string]any)
	if result["status"] != string(models.AssessmentStatusInProgress) {
		t.Errorf("expected in_progress, got %v", result["status"])
	}

	rec, _ = doRequest(t, server, http.MethodGet, "/assessments/simulateProfit/status?user_id=u1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 status read, got %d", rec.Code)
	}
}

func TestStatusRequiresUserID(t *testing.T) {
	rec, _ := doRequest(t, newTestServer(), http.MethodGet, "/assessments/simulateProfit/status", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestInvalidStepIs400(t *testing.T) {
	server := newTestServer()
	doRequest(t, server, http.MethodPost, "/assessments/simulateProfit/start", `{"user_id":"u1"}`)
	rec, _ := doRequest(t, server, http.MethodPost, "/assessments/simulateProfit/answer",
		`{"user_id":"u1","answer":"5000","step_key":"bogus"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
