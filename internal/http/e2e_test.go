package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/config"
	httpx "github.com/taskhub/taskhub/internal/http"
	"github.com/taskhub/taskhub/internal/repo/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	return config.Config{
		Env:               "test",
		Port:              0,
		CORSOrigin:        "http://localhost:3000",
		AccessSecret:      "e2e-access-secret-0123",
		RefreshSecret:     "e2e-refresh-secret-0123",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		RefreshCookieName: "refreshToken",
		BcryptCost:        4,
	}
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return httpx.NewRouter(log, testConfig(), httpx.Deps{
		Users: memory.NewUsersRepo(),
		Tasks: memory.NewTasksRepo(),
	})
}

type client struct {
	t      *testing.T
	router http.Handler
	bearer string
	cookie *http.Cookie
}

func (c *client) do(method, path, body string) (*httptest.ResponseRecorder, *http.Response) {
	c.t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	res := w.Result()

	for _, ck := range res.Cookies() {
		if ck.Name == "refreshToken" {
			c.cookie = ck
		}
	}

	return w, res
}

func (c *client) decode(w *httptest.ResponseRecorder, out any) {
	c.t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		c.t.Fatalf("unmarshal: %v, body=%s", err, w.Body.String())
	}
}

// The full lifecycle against the real router: register, create a task, toggle
// it there and back, delete it, and confirm it is gone.
func TestEndToEndTaskLifecycle(t *testing.T) {
	router := newTestServer(t)
	c := &client{t: t, router: router}

	w, res := c.do(http.MethodPost, "/auth/register", `{"email":"a@example.com","password":"Password123!"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("register got status %d, body=%s", w.Code, w.Body.String())
	}

	var reg struct {
		AccessToken string `json:"accessToken"`
	}
	c.decode(w, &reg)

	if reg.AccessToken == "" {
		t.Fatal("register returned no access token")
	}

	cookieSet := false

	for _, ck := range res.Cookies() {
		if ck.Name == "refreshToken" && ck.Value != "" && ck.HttpOnly {
			cookieSet = true
		}
	}

	if !cookieSet {
		t.Fatal("register did not set an httpOnly refresh cookie")
	}

	c.bearer = reg.AccessToken

	var taskResp struct {
		Task struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"task"`
	}

	w, _ = c.do(http.MethodPost, "/tasks", `{"title":"T"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("create got status %d, body=%s", w.Code, w.Body.String())
	}

	c.decode(w, &taskResp)

	if taskResp.Task.Status != "PENDING" {
		t.Fatalf("new task status = %q, want PENDING", taskResp.Task.Status)
	}

	id := taskResp.Task.ID

	w, _ = c.do(http.MethodPatch, "/tasks/"+id+"/toggle", "")
	c.decode(w, &taskResp)

	if w.Code != http.StatusOK || taskResp.Task.Status != "COMPLETED" {
		t.Fatalf("toggle 1: status=%d task=%q", w.Code, taskResp.Task.Status)
	}

	w, _ = c.do(http.MethodPatch, "/tasks/"+id+"/toggle", "")
	c.decode(w, &taskResp)

	if w.Code != http.StatusOK || taskResp.Task.Status != "PENDING" {
		t.Fatalf("toggle 2: status=%d task=%q", w.Code, taskResp.Task.Status)
	}

	w, _ = c.do(http.MethodDelete, "/tasks/"+id, "")

	if w.Code != http.StatusOK {
		t.Fatalf("delete got status %d, body=%s", w.Code, w.Body.String())
	}

	w, _ = c.do(http.MethodGet, "/tasks/"+id, "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted task still present: status %d", w.Code)
	}
}

func TestEndToEndPagination(t *testing.T) {
	router := newTestServer(t)
	c := &client{t: t, router: router}

	w, _ := c.do(http.MethodPost, "/auth/register", `{"email":"a@example.com","password":"Password123!"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("register got status %d", w.Code)
	}

	var reg struct {
		AccessToken string `json:"accessToken"`
	}
	c.decode(w, &reg)
	c.bearer = reg.AccessToken

	for i := 0; i < 15; i++ {
		w, _ = c.do(http.MethodPost, "/tasks", fmt.Sprintf(`{"title":"task %02d"}`, i))

		if w.Code != http.StatusCreated {
			t.Fatalf("create %d got status %d", i, w.Code)
		}
	}

	w, _ = c.do(http.MethodGet, "/tasks?page=2&limit=10", "")

	if w.Code != http.StatusOK {
		t.Fatalf("list got status %d, body=%s", w.Code, w.Body.String())
	}

	var list struct {
		Items      []json.RawMessage `json:"items"`
		Pagination struct {
			TotalItems int `json:"totalItems"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}
	c.decode(w, &list)

	if len(list.Items) != 5 {
		t.Fatalf("page 2 items = %d, want 5", len(list.Items))
	}

	if list.Pagination.TotalItems != 15 || list.Pagination.TotalPages != 2 {
		t.Fatalf("pagination = %+v", list.Pagination)
	}
}

func TestEndToEndRefreshAndLogout(t *testing.T) {
	router := newTestServer(t)
	c := &client{t: t, router: router}

	w, _ := c.do(http.MethodPost, "/auth/register", `{"email":"a@example.com","password":"Password123!"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("register got status %d", w.Code)
	}

	old := c.cookie

	w, _ = c.do(http.MethodPost, "/auth/refresh", "")

	if w.Code != http.StatusOK {
		t.Fatalf("refresh got status %d, body=%s", w.Code, w.Body.String())
	}

	// replay of the pre-rotation cookie
	replay := &client{t: t, router: router, cookie: old}
	w, _ = replay.do(http.MethodPost, "/auth/refresh", "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("superseded refresh token accepted: status %d", w.Code)
	}

	w, _ = c.do(http.MethodPost, "/auth/logout", "")

	if w.Code != http.StatusOK {
		t.Fatalf("logout got status %d", w.Code)
	}

	w, _ = c.do(http.MethodPost, "/auth/refresh", "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout got status %d, want 401", w.Code)
	}
}

func TestHealthAndNoRoute(t *testing.T) {
	router := newTestServer(t)
	c := &client{t: t, router: router}

	w, _ := c.do(http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("health got status %d", w.Code)
	}

	w, _ = c.do(http.MethodGet, "/readyz", "")

	if w.Code != http.StatusOK {
		t.Fatalf("readyz got status %d", w.Code)
	}

	w, _ = c.do(http.MethodGet, "/nope", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route got status %d", w.Code)
	}

	var resp struct {
		Message string `json:"message"`
	}
	c.decode(w, &resp)

	if resp.Message != "Route not found" {
		t.Fatalf("message = %q", resp.Message)
	}

	w, _ = c.do(http.MethodGet, "/metrics", "")

	if w.Code != http.StatusOK {
		t.Fatalf("metrics got status %d", w.Code)
	}
}

func TestRequireJSONOnWrites(t *testing.T) {
	router := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		bytes.NewBufferString("email=a@example.com&password=Password123!"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("form post got status %d, want 415", w.Code)
	}
}
