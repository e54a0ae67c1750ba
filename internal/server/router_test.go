package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eduquery-ai/eduquery/internal/api/handlers"
	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSessionValidator struct {
	mock.Mock
}

func (m *MockSessionValidator) ValidateSession(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, input service.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*service.LoginOutput, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginOutput), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type MockRoutingService struct {
	mock.Mock
}

func (m *MockRoutingService) Route(ctx context.Context, questionText string) (*service.RouteResult, error) {
	args := m.Called(ctx, questionText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RouteResult), args.Error(1)
}

type MockAuditHistoryService struct {
	mock.Mock
}

func (m *MockAuditHistoryService) History(ctx context.Context, cursor string, limit int) (*service.AuditPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuditPageResult), args.Error(1)
}

type MockEscalationService struct {
	mock.Mock
}

func (m *MockEscalationService) ListPending(ctx context.Context) ([]*domain.Escalation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Escalation), args.Error(1)
}

func (m *MockEscalationService) List(ctx context.Context) ([]*domain.Escalation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Escalation), args.Error(1)
}

func (m *MockEscalationService) Get(ctx context.Context, id string) (*domain.Escalation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Escalation), args.Error(1)
}

func (m *MockEscalationService) Answer(ctx context.Context, id, answer string) (*domain.Escalation, error) {
	args := m.Called(ctx, id, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Escalation), args.Error(1)
}

func (m *MockEscalationService) ClearAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Create(ctx context.Context, input service.CreateDocumentInput) (*service.CreateDocumentOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreateDocumentOutput), args.Error(1)
}

func (m *MockDocumentService) Ingest(ctx context.Context, documentID string) (*domain.EmbeddingJob, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmbeddingJob), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context) ([]*domain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentService) DeleteAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockCorpusService struct {
	mock.Mock
}

func (m *MockCorpusService) Add(ctx context.Context, text string) (*domain.Question, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}

func (m *MockCorpusService) List(ctx context.Context, cursor string, limit int) (*service.CorpusPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CorpusPageResult), args.Error(1)
}

func (m *MockCorpusService) Get(ctx context.Context, id string) (*domain.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}

func (m *MockCorpusService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type routerMocks struct {
	sessionValidator *MockSessionValidator
	routingSvc       *MockRoutingService
	escalationSvc    *MockEscalationService
}

func setupRouter() (http.Handler, *routerMocks) {
	mocks := &routerMocks{
		sessionValidator: new(MockSessionValidator),
		routingSvc:       new(MockRoutingService),
		escalationSvc:    new(MockEscalationService),
	}

	cfg := RouterConfig{
		SessionValidator:  mocks.sessionValidator,
		AuthHandler:       handlers.NewAuthHandler(new(MockAuthService)),
		QuestionHandler:   handlers.NewQuestionHandler(mocks.routingSvc, new(MockAuditHistoryService)),
		EscalationHandler: handlers.NewEscalationHandler(mocks.escalationSvc),
		DocumentHandler:   handlers.NewDocumentHandler(new(MockDocumentService)),
		CorpusHandler:     handlers.NewCorpusHandler(new(MockCorpusService)),
	}

	router := NewRouter(cfg)
	return router, mocks
}

const sessionToken = "edq_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, mocks := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/questions"},
		{http.MethodGet, "/questions/history"},
		{http.MethodGet, "/escalations"},
		{http.MethodPost, "/escalations/123/answer"},
		{http.MethodDelete, "/escalations"},
		{http.MethodGet, "/documents"},
		{http.MethodPost, "/documents"},
		{http.MethodGet, "/corpus"},
		{http.MethodPost, "/corpus"},
		{http.MethodPost, "/auth/logout"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	mocks.sessionValidator.AssertExpectations(t)
}

func TestRouter_StudentCanAsk(t *testing.T) {
	router, mocks := setupRouter()

	student := &domain.User{ID: "user-1", Username: "alice", Role: domain.RoleStudent}
	mocks.sessionValidator.On("ValidateSession", mock.Anything, sessionToken).Return(student, nil)

	result := &service.RouteResult{
		Decision:   domain.DecisionAutoAnswer,
		Answer:     "An answer.",
		Confidence: 0.91,
	}
	mocks.routingSvc.On("Route", mock.Anything, "What is osmosis?").Return(result, nil)

	body := `{"question":"What is osmosis?"}`
	req := httptest.NewRequest(http.MethodPost, "/questions", bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.sessionValidator.AssertExpectations(t)
	mocks.routingSvc.AssertExpectations(t)
}

func TestRouter_StudentCannotAccessTeacherRoutes(t *testing.T) {
	router, mocks := setupRouter()

	student := &domain.User{ID: "user-1", Username: "alice", Role: domain.RoleStudent}
	mocks.sessionValidator.On("ValidateSession", mock.Anything, sessionToken).Return(student, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/questions/history"},
		{http.MethodGet, "/escalations"},
		{http.MethodDelete, "/escalations"},
		{http.MethodGet, "/documents"},
		{http.MethodGet, "/corpus"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			req.Header.Set("Authorization", "Bearer "+sessionToken)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestRouter_TeacherCanListEscalations(t *testing.T) {
	router, mocks := setupRouter()

	teacher := &domain.User{ID: "user-2", Username: "mr-smith", Role: domain.RoleTeacher}
	mocks.sessionValidator.On("ValidateSession", mock.Anything, sessionToken).Return(teacher, nil)

	pending := []*domain.Escalation{
		{
			ID:           "esc-1",
			QuestionText: "Why is the sky blue?",
			Confidence:   0.4,
			Status:       domain.EscalationStatusPending,
			SubmittedAt:  time.Now().UTC(),
		},
	}
	mocks.escalationSvc.On("ListPending", mock.Anything).Return(pending, nil)

	req := httptest.NewRequest(http.MethodGet, "/escalations", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "esc-1")
	mocks.escalationSvc.AssertExpectations(t)
}

func TestRouter_RegisterIsPublic(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// Reaches the handler without a session; fails validation, not auth.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
