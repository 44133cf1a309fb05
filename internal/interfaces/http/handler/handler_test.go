package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/interfaces/http/middleware"
	apperrors "ai-code-mother/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAppService struct {
	AppService

	events  []codegen.StreamEvent
	chatErr error
	app     *entity.App
	message string
}

func (f *fakeAppService) ChatToGenCode(_ context.Context, _ int64, _ *entity.User, message string) (<-chan codegen.StreamEvent, error) {
	f.message = message
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	ch := make(chan codegen.StreamEvent, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (f *fakeAppService) Get(_ context.Context, appID int64) (*entity.App, error) {
	if f.app == nil || f.app.ID != appID {
		return nil, apperrors.New(apperrors.CodeAppNotFound, "应用不存在")
	}
	return f.app, nil
}

func (f *fakeAppService) Deploy(context.Context, int64, *entity.User) (string, error) {
	return "", apperrors.New(apperrors.CodeArtifactNotReady, "构建产物不存在")
}

func (f *fakeAppService) ListMine(_ context.Context, _ *entity.User, _ *repository.AppFilter, p repository.Pagination) (*repository.PagedResult[*entity.App], error) {
	return repository.NewPagedResult([]*entity.App{f.app}, 1, p), nil
}

type fakeHistory struct {
	rows     []*entity.ChatHistory
	pageSize int
	cursor   *time.Time
}

func (f *fakeHistory) ListByCursor(_ context.Context, _ *entity.App, _ *entity.User, lastCreatedAt *time.Time, pageSize int) ([]*entity.ChatHistory, error) {
	f.cursor, f.pageSize = lastCreatedAt, pageSize
	return f.rows, nil
}

// sseRecorder 为 c.Stream 提供 http.CloseNotifier
type sseRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newSSERecorder() *sseRecorder {
	return &sseRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *sseRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func withUser(user *entity.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.ContextKeyUser, user)
		}
		c.Next()
	}
}

func testUser() *entity.User {
	u := entity.NewUser("a@example.com", "a")
	u.ID = 1
	return u
}

func newChatEngine(svc AppService, history HistoryService, user *entity.User) *gin.Engine {
	h := NewChatHandler(svc, history)
	app := NewAppHandler(svc)
	r := gin.New()
	r.Use(withUser(user))
	r.GET("/apps/:id/chat/gen/code", h.GenCode)
	r.GET("/apps/:id/chat/history", h.ListHistory)
	r.POST("/apps/:id/deploy", app.DeployApp)
	r.GET("/apps", app.ListMyApps)
	return r
}

func TestGenCode_StreamsEventsAsSSE(t *testing.T) {
	svc := &fakeAppService{events: []codegen.StreamEvent{
		codegen.TextChunk("hi there"),
		codegen.ToolCallExecuted("c1", "writeFile", `{"relativeFilePath":"a"}`, "ok"),
		codegen.Done(),
	}}
	r := newChatEngine(svc, &fakeHistory{}, testUser())

	w := newSSERecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps/7/chat/gen/code?message=hello", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "hello", svc.message)

	body := w.Body.String()
	assert.Contains(t, body, "event:text_chunk\ndata:{\"type\":\"text_chunk\",\"data\":\"hi there\"}")
	assert.Contains(t, body, "event:tool_call_executed\n")
	assert.Contains(t, body, "event:done\ndata:{\"type\":\"done\"}")
	assert.Less(t, strings.Index(body, "event:text_chunk"), strings.Index(body, "event:done"))
}

func TestGenCode_RejectionIsJSON(t *testing.T) {
	svc := &fakeAppService{chatErr: apperrors.New(apperrors.CodeTooManyRequests, "请求过于频繁")}
	r := newChatEngine(svc, &fakeHistory{}, testUser())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps/7/chat/gen/code?message=hi", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "请求过于频繁", resp["message"])
	assert.Equal(t, "1006", resp["error"].(map[string]any)["error_code"])
}

func TestGenCode_RequiresUserAndValidID(t *testing.T) {
	r := newChatEngine(&fakeAppService{}, &fakeHistory{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps/7/chat/gen/code?message=hi", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = newChatEngine(&fakeAppService{}, &fakeHistory{}, testUser())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps/abc/chat/gen/code?message=hi", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListHistory_ParsesCursor(t *testing.T) {
	app := entity.NewApp(1, "p", "SingleFile")
	app.ID = 7
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	history := &fakeHistory{rows: []*entity.ChatHistory{
		{ID: 2, AppID: 7, Message: "b", MessageType: "assistant", CreatedAt: created},
		{ID: 1, AppID: 7, Message: "a", MessageType: "user", CreatedAt: created.Add(-time.Minute)},
	}}
	r := newChatEngine(&fakeAppService{app: app}, history, testUser())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps/7/chat/history?pageSize=2&lastCreatedAt=2026-01-03T00:00:00Z", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, history.pageSize)
	require.NotNil(t, history.cursor)
	assert.True(t, history.cursor.Equal(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)))

	var resp struct {
		Data struct {
			Items      []map[string]any `json:"items"`
			NextCursor *time.Time       `json:"nextCursor"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Items, 2)
	require.NotNil(t, resp.Data.NextCursor)
	assert.True(t, resp.Data.NextCursor.Equal(created.Add(-time.Minute)))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps/7/chat/history?lastCreatedAt=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps/8/chat/history", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeployApp_ArtifactNotReady(t *testing.T) {
	r := newChatEngine(&fakeAppService{}, &fakeHistory{}, testUser())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/apps/7/deploy", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListMyApps_Paged(t *testing.T) {
	app := entity.NewApp(1, "p", "SingleFile")
	app.ID = 7
	r := newChatEngine(&fakeAppService{app: app}, &fakeHistory{}, testUser())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps?page=1&page_size=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Items []map[string]any `json:"items"`
		} `json:"data"`
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "7", resp.Data.Items[0]["id"])
	assert.Equal(t, float64(5), resp.Meta["page_size"])
}

func TestStaticHandler(t *testing.T) {
	output := t.TempDir()
	deploy := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(output, "SingleFile_7", "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(output, "SingleFile_7", "index.html"), []byte("<h1>preview</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(output, "SingleFile_7", "assets", "index.html"), []byte("nested"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(output, "secret.txt"), []byte("secret"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(deploy, "abc123"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(deploy, "abc123", "style.css"), []byte("a{}"), 0o644))

	h := NewStaticHandler(output, deploy)
	r := gin.New()
	r.GET("/static/:dir/*filepath", h.Preview)
	r.GET("/deploy/:key/*filepath", h.Deployed)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/static/SingleFile_7/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<h1>preview</h1>", w.Body.String())

	w = get("/static/SingleFile_7/assets")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/static/SingleFile_7/assets/", w.Header().Get("Location"))

	w = get("/deploy/abc123/style.css")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a{}", w.Body.String())

	assert.Equal(t, http.StatusNotFound, get("/deploy/abc123/missing.js").Code)
	assert.Equal(t, http.StatusNotFound, get("/static/SingleFile_7/../secret.txt").Code)
}
