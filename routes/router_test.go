package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/secureblog/server/upload"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret-do-not-use")
	tmp, err := os.MkdirTemp("", "router-test")
	if err != nil {
		os.Exit(1)
	}
	os.Setenv("GIN_PATH", filepath.Join(tmp, "gin.log"))
	os.Setenv("LOG_PATH", filepath.Join(tmp, "app.log"))
	os.Setenv("UPLOAD_ROOT", filepath.Join(tmp, "uploads"))
	gin.SetMode(gin.TestMode)
	code := m.Run()
	os.RemoveAll(tmp)
	os.Exit(code)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	pipeline, err := upload.New(upload.Config{UploadRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return SetupRouter(nil, pipeline)
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAdminHoneypot(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/admin/", "/admin/login", "/admin/users/1/edit"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", path, rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: unmarshal: %v", path, err)
		}
		if resp["detail"] != "forbidden" {
			t.Errorf("%s: body = %v, want bare forbidden detail", path, resp)
		}
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != 40400 {
		t.Errorf("code = %d, want 40400", resp.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/ckeditor/upload"},
		{http.MethodGet, "/api/v1/ckeditor/browse"},
		{http.MethodGet, "/api/v1/users/me/posts"},
		{http.MethodGet, "/api/v1/users/me/likes"},
		{http.MethodPost, "/api/v1/posts"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
