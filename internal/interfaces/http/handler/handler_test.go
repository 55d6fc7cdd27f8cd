package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/internal/application/assistant"
	"agent-smith-api/internal/application/findings"
	"agent-smith-api/internal/application/investigation"
	"agent-smith-api/internal/domain/entity"
	"agent-smith-api/internal/domain/repository"
	wfmodel "agent-smith-api/internal/workflow/model"
	apperrors "agent-smith-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeInvestigations struct {
	submitted []string
	synced    []string
	opts      investigation.SubmitOptions
	items     map[string]*entity.Investigation
	err       error
}

func (f *fakeInvestigations) Submit(_ context.Context, query string, opts investigation.SubmitOptions) (*entity.Investigation, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, query)
	f.opts = opts
	return entity.NewInvestigation("inv-1", entity.NewInvestigationProfile(query, 30, 1)), nil
}

func (f *fakeInvestigations) RunSync(_ context.Context, query string, opts investigation.SubmitOptions) (*entity.Investigation, error) {
	f.synced = append(f.synced, query)
	f.opts = opts
	inv := entity.NewInvestigation("inv-sync", entity.NewInvestigationProfile(query, 30, 1))
	_ = inv.Start()
	inv.Complete(&entity.InvestigationResult{Report: "done"})
	return inv, nil
}

func (f *fakeInvestigations) Get(_ context.Context, id string) (*entity.Investigation, error) {
	inv, ok := f.items[id]
	if !ok {
		return nil, apperrors.ErrInvestigationNotFound
	}
	return inv, nil
}

func (f *fakeInvestigations) List(_ context.Context, filter *repository.InvestigationFilter, p repository.Pagination) (*repository.PagedResult[*entity.Investigation], error) {
	var items []*entity.Investigation
	for _, inv := range f.items {
		if filter.Status == "" || inv.Status == filter.Status {
			items = append(items, inv)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (f *fakeInvestigations) StatusCounts(context.Context) (map[entity.InvestigationStatus]int64, error) {
	out := map[entity.InvestigationStatus]int64{}
	for _, inv := range f.items {
		out[inv.Status]++
	}
	return out, nil
}

func (f *fakeInvestigations) Cancel(ctx context.Context, id string) (*entity.Investigation, error) {
	inv, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Cancel(); err != nil {
		return nil, apperrors.ErrInvalidTransition.WithDetail(err.Error())
	}
	return inv, nil
}

type fakeAssistant struct {
	asked []wfmodel.Message
}

func (f *fakeAssistant) Ask(_ context.Context, messages []wfmodel.Message) (wfmodel.Reply, error) {
	f.asked = messages
	return wfmodel.Reply{Content: "hello", Tool: wfmodel.ToolNone}, nil
}

func (f *fakeAssistant) CreateSession(_ context.Context, title string) (*entity.Session, error) {
	return &entity.Session{ID: "s-1", Title: title}, nil
}

func (f *fakeAssistant) Chat(_ context.Context, sessionID, content string) (*assistant.ChatResult, error) {
	if sessionID != "s-1" {
		return nil, apperrors.ErrSessionNotFound
	}
	user := entity.NewTurn("t-1", sessionID, entity.RoleUser, content)
	reply := entity.NewTurn("t-2", sessionID, entity.RoleAssistant, "found it")
	reply.Tool = string(wfmodel.ToolWebSearch)
	reply.Query = content
	return &assistant.ChatResult{UserTurn: user, AssistantTurn: reply}, nil
}

func (f *fakeAssistant) History(_ context.Context, sessionID string, _ int) ([]*entity.Turn, error) {
	return []*entity.Turn{entity.NewTurn("t-1", sessionID, entity.RoleUser, "hi")}, nil
}

type fakeWeb struct {
	n int
}

func (f *fakeWeb) Search(_ context.Context, query string, n int) ([]entity.WebResult, error) {
	f.n = n
	return []entity.WebResult{{Title: query, Snippet: "s", URL: "https://example.com"}}, nil
}

type fakeSimilar struct {
	err error
}

func (f *fakeSimilar) Similar(_ context.Context, query string, _ int) ([]entity.SimilarFinding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []entity.SimilarFinding{{ID: "v1", Query: query, Score: 0.9}}, nil
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func newEngine(inv InvestigationService, asst AssistantService, search *SearchHandler) *gin.Engine {
	r := gin.New()
	ih := NewInvestigationHandler(inv)
	r.POST("/v1/investigations", ih.Create)
	r.GET("/v1/investigations", ih.List)
	r.GET("/v1/investigations/:id", ih.Get)
	r.POST("/v1/investigations/:id/cancel", ih.Cancel)

	ah := NewAssistantHandler(asst)
	r.POST("/v1/ask", ah.Ask)
	r.POST("/v1/sessions", ah.CreateSession)
	r.POST("/v1/sessions/:id/messages", ah.SendMessage)
	r.GET("/v1/sessions/:id/messages", ah.History)

	if search != nil {
		r.GET("/v1/search/web", search.Web)
		r.GET("/v1/findings/similar", search.SimilarFindings)
	}
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestInvestigationHandler_Create(t *testing.T) {
	svc := &fakeInvestigations{}
	r := newEngine(svc, &fakeAssistant{}, nil)

	lines := 2
	w, env := do(t, r, http.MethodPost, "/v1/investigations", map[string]any{
		"query": "alice", "size": 10, "context_lines": lines, "include": map[string]any{"ext": "json"},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "0", env.Code)
	assert.Equal(t, []string{"alice"}, svc.submitted)
	assert.Equal(t, 10, svc.opts.Size)
	require.NotNil(t, svc.opts.ContextLines)
	assert.Equal(t, 2, *svc.opts.ContextLines)

	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "inv-1", got["id"])
	assert.Equal(t, "pending", got["status"])

	w, env = do(t, r, http.MethodPost, "/v1/investigations?sync=true", map[string]any{"query": "bob"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"bob"}, svc.synced)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "completed", got["status"])
	assert.Nil(t, svc.opts.ContextLines)

	w, env = do(t, r, http.MethodPost, "/v1/investigations", map[string]any{"size": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.CodeInvalidParam), env.Code)
}

func TestInvestigationHandler_CreateQueueError(t *testing.T) {
	svc := &fakeInvestigations{err: apperrors.Wrap(assert.AnError, apperrors.CodeQueueError, "failed to enqueue investigation")}
	r := newEngine(svc, &fakeAssistant{}, nil)

	w, env := do(t, r, http.MethodPost, "/v1/investigations", map[string]any{"query": "alice"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(apperrors.CodeQueueError), env.Code)
}

func TestInvestigationHandler_GetListCancel(t *testing.T) {
	done := entity.NewInvestigation("done", entity.NewInvestigationProfile("carol", 30, 1))
	done.Complete(&entity.InvestigationResult{Report: "r"})
	svc := &fakeInvestigations{items: map[string]*entity.Investigation{
		"inv-1": entity.NewInvestigation("inv-1", entity.NewInvestigationProfile("alice", 30, 1)),
		"done":  done,
	}}
	r := newEngine(svc, &fakeAssistant{}, nil)

	w, env := do(t, r, http.MethodGet, "/v1/investigations/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.CodeInvestigationNotFound), env.Code)

	w, _ = do(t, r, http.MethodGet, "/v1/investigations/inv-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodGet, "/v1/investigations?page=1&page_size=10&status=completed", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items  []map[string]any `json:"items"`
		Counts map[string]int64 `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "carol", list.Items[0]["query"])
	assert.Equal(t, int64(1), list.Counts["pending"])
	assert.EqualValues(t, 10, env.Meta["page_size"])

	w, _ = do(t, r, http.MethodPost, "/v1/investigations/inv-1/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodPost, "/v1/investigations/done/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(apperrors.CodeInvalidTransition), env.Code)
}

func TestAssistantHandler(t *testing.T) {
	asst := &fakeAssistant{}
	r := newEngine(&fakeInvestigations{}, asst, nil)

	w, env := do(t, r, http.MethodPost, "/v1/ask", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, asst.asked, 1)
	var reply map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, "hello", reply["content"])
	assert.Equal(t, "none", reply["tool"])

	w, _ = do(t, r, http.MethodPost, "/v1/ask", map[string]any{"messages": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodPost, "/v1/sessions", map[string]any{"title": "research"})
	assert.Equal(t, http.StatusCreated, w.Code)
	var session map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "research", session["title"])

	w, env = do(t, r, http.MethodPost, "/v1/sessions/s-1/messages", map[string]any{"content": "go news"})
	assert.Equal(t, http.StatusOK, w.Code)
	var chat struct {
		AssistantTurn map[string]any `json:"assistant_turn"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &chat))
	assert.Equal(t, "web_search", chat.AssistantTurn["tool"])
	assert.Equal(t, "go news", chat.AssistantTurn["query"])

	w, env = do(t, r, http.MethodPost, "/v1/sessions/ghost/messages", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.CodeSessionNotFound), env.Code)

	w, _ = do(t, r, http.MethodGet, "/v1/sessions/s-1/messages?limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchHandler(t *testing.T) {
	web := &fakeWeb{}
	r := newEngine(&fakeInvestigations{}, &fakeAssistant{}, NewSearchHandler(web, &fakeSimilar{}))

	w, _ := do(t, r, http.MethodGet, "/v1/search/web", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(t, r, http.MethodGet, "/v1/search/web?q=golang&n=99", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxWebResults, web.n)
	var res struct {
		Results []entity.WebResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Results, 1)
	assert.Equal(t, "golang", res.Results[0].Title)

	w, _ = do(t, r, http.MethodGet, "/v1/findings/similar?q=alice&k=3", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchHandler_IndexDisabled(t *testing.T) {
	r := newEngine(&fakeInvestigations{}, &fakeAssistant{}, NewSearchHandler(nil, &fakeSimilar{err: findings.ErrIndexDisabled}))

	w, env := do(t, r, http.MethodGet, "/v1/findings/similar?q=alice", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, string(apperrors.CodeServiceUnavailable), env.Code)

	w, env = do(t, r, http.MethodGet, "/v1/search/web?q=x", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, string(apperrors.CodeSearchUnavailable), env.Code)
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler("1.2.3", Dependency{Name: "postgres", Required: true})
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
	r.GET("/health/live", h.Live)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1.2.3")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_ReadyWithOptionalFailure(t *testing.T) {
	ok := checkerFunc(func(context.Context) error { return nil })
	down := checkerFunc(func(context.Context) error { return errors.New("connection refused") })
	h := NewHealthHandler("dev",
		Dependency{Name: "postgres", Required: true, Checker: ok},
		Dependency{Name: "redis", Required: true, Checker: ok},
		Dependency{Name: "milvus", Checker: down},
		Dependency{Name: "search_cache"},
	)
	r := gin.New()
	r.GET("/health/ready", h.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body readinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "degraded", body.Checks["milvus"].Status)
	assert.Equal(t, "connection refused", body.Checks["milvus"].Error)
	assert.Equal(t, "disabled", body.Checks["search_cache"].Status)
	assert.Equal(t, "ok", body.Checks["redis"].Status)
}
