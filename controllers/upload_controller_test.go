package controllers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/secureblog/server/middleware"
	"github.com/secureblog/server/upload"
)

func newUploadRouter(t *testing.T, authenticated bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pipeline, err := upload.New(upload.Config{
		UploadRoot:    t.TempDir(),
		PublicBaseURL: "/static/uploads",
	})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	ctl := NewUploadController(nil, pipeline)

	r := gin.New()
	group := r.Group("")
	if authenticated {
		group.Use(func(ctx *gin.Context) {
			ctx.Set(middleware.ContextUsernameKey, "alice")
			ctx.Next()
		})
	}
	group.POST("/upload", ctl.Upload)
	group.GET("/browse", ctl.Browse)
	return r
}

func multipartImage(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadSuccessResponse(t *testing.T) {
	r := newUploadRouter(t, true)

	body, contentType := multipartImage(t, "upload", "vacation photo.png", smallPNG(t))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		URL      string `json:"url"`
		Uploaded int    `json:"uploaded"`
		FileName string `json:"fileName"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Uploaded != 1 {
		t.Errorf("uploaded = %d, want 1", resp.Uploaded)
	}
	if resp.FileName != "vacation photo.png" {
		t.Errorf("fileName = %q, want original client name", resp.FileName)
	}
	urlPattern := regexp.MustCompile(`^/static/uploads/[0-9a-f]{32}\.png$`)
	if !urlPattern.MatchString(resp.URL) {
		t.Errorf("url = %q, want randomized name under public base", resp.URL)
	}
}

func TestUploadAcceptsLegacyFileField(t *testing.T) {
	r := newUploadRouter(t, true)

	body, contentType := multipartImage(t, "file", "a.png", smallPNG(t))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestUploadErrorShape(t *testing.T) {
	r := newUploadRouter(t, true)

	cases := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"bad extension", "script.sh", []byte("#!/bin/sh\n")},
		{"content mismatch", "image.jpg", smallPNG(t)},
		{"not an image", "image.png", []byte("plain text")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, contentType := multipartImage(t, "upload", tc.filename, tc.data)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Error.Message == "" {
				t.Error("error.message is empty")
			}
		})
	}
}

func TestUploadStorageFailureIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)

	root := filepath.Join(t.TempDir(), "uploads")
	pipeline, err := upload.New(upload.Config{UploadRoot: root})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	// Pull the directory out from under the pipeline so the write fails.
	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("remove root: %v", err)
	}

	ctl := NewUploadController(nil, pipeline)
	r := gin.New()
	r.POST("/upload", func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUsernameKey, "alice")
		ctl.Upload(ctx)
	})

	body, contentType := multipartImage(t, "upload", "a.png", smallPNG(t))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Message == "" {
		t.Error("error.message is empty")
	}
}

func TestUploadWithoutFile(t *testing.T) {
	r := newUploadRouter(t, true)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	_ = w.WriteField("note", "no file here")
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRequiresIdentity(t *testing.T) {
	r := newUploadRouter(t, false)

	body, contentType := multipartImage(t, "upload", "a.png", smallPNG(t))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestBrowseRequiresIdentity(t *testing.T) {
	r := newUploadRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/browse", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
