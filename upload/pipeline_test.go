package upload

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"regexp"
	"strings"
	"testing"
)

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	if cfg.UploadRoot == "" {
		cfg.UploadRoot = t.TempDir()
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "/media/uploads"
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testImage(), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// countDecodes wraps the pipeline's decoder so tests can prove early
// rejections never reach it.
func countDecodes(p *Pipeline) *int {
	calls := 0
	inner := p.decode
	p.decode = func(data []byte) (string, error) {
		calls++
		return inner(data)
	}
	return &calls
}

func TestRejectsUnsupportedExtension(t *testing.T) {
	p := newTestPipeline(t, Config{})
	calls := countDecodes(p)

	for _, name := range []string{"shell.exe", "page.html", "noextension", "trailing.", "", "  ", "double..", "script.png.js"} {
		asset, uerr := p.Process(name, 0, bytes.NewReader(pngBytes(t)))
		if asset != nil || uerr == nil {
			t.Fatalf("%q: expected rejection", name)
		}
		if uerr.Kind != KindUnsupportedFormat {
			t.Errorf("%q: kind = %v, want KindUnsupportedFormat", name, uerr.Kind)
		}
		if uerr.HTTPStatus() != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", name, uerr.HTTPStatus())
		}
	}
	if *calls != 0 {
		t.Errorf("decoder invoked %d times on allowlist rejections", *calls)
	}
}

func TestRejectsDeclaredOversize(t *testing.T) {
	p := newTestPipeline(t, Config{})
	calls := countDecodes(p)

	// Scenario: a valid 15MB JPEG declared against the 10MiB default
	// ceiling must be rejected before the body is read or decoded.
	_, uerr := p.Process("big.jpg", 15*1024*1024, &failingReader{})
	if uerr == nil || uerr.Kind != KindPayloadTooLarge {
		t.Fatalf("kind = %v, want KindPayloadTooLarge", uerr)
	}
	if *calls != 0 {
		t.Errorf("decoder invoked despite oversize declaration")
	}
}

// failingReader proves the body is never touched when the declared size
// already exceeds the ceiling.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	panic("body read after declared-size rejection")
}

func TestRejectsActualOversize(t *testing.T) {
	// A client can lie about content length; the ceiling must hold
	// against the bytes actually streamed.
	p := newTestPipeline(t, Config{MaxUploadBytes: 512})
	calls := countDecodes(p)

	body := bytes.Repeat([]byte{0xAB}, 2048)
	_, uerr := p.Process("sneaky.png", 100, bytes.NewReader(body))
	if uerr == nil || uerr.Kind != KindPayloadTooLarge {
		t.Fatalf("kind = %v, want KindPayloadTooLarge", uerr)
	}
	if *calls != 0 {
		t.Errorf("decoder invoked on oversize body")
	}
}

func TestRejectsNonImageContent(t *testing.T) {
	p := newTestPipeline(t, Config{})

	payloads := map[string][]byte{
		"renamed text":    []byte("#!/bin/sh\nrm -rf /\n"),
		"zero bytes":      {},
		"truncated png":   pngBytes(t)[:20],
		"random garbage":  {0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE},
		"html polyglot":   []byte("<html><script>alert(1)</script></html>"),
	}
	for label, body := range payloads {
		_, uerr := p.Process("shell.png", int64(len(body)), bytes.NewReader(body))
		if uerr == nil || uerr.Kind != KindInvalidImageContent {
			t.Errorf("%s: kind = %v, want KindInvalidImageContent", label, uerr)
			continue
		}
		if uerr.HTTPStatus() != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", label, uerr.HTTPStatus())
		}
	}
}

func TestRejectsExtensionMismatch(t *testing.T) {
	p := newTestPipeline(t, Config{})

	cases := []struct {
		name string
		body []byte
	}{
		{"trick.jpg", pngBytes(t)},  // valid PNG claiming to be a JPEG
		{"photo.webp", pngBytes(t)}, // valid PNG claiming to be WEBP
		{"anim.png", gifBytes(t)},   // valid GIF claiming to be a PNG
		{"pic.gif", jpegBytes(t)},   // valid JPEG claiming to be a GIF
	}
	for _, tc := range cases {
		_, uerr := p.Process(tc.name, int64(len(tc.body)), bytes.NewReader(tc.body))
		if uerr == nil || uerr.Kind != KindExtensionMismatch {
			t.Errorf("%s: kind = %v, want KindExtensionMismatch", tc.name, uerr)
		}
	}
}

func TestValidPNGUpload(t *testing.T) {
	root := t.TempDir()
	p := newTestPipeline(t, Config{UploadRoot: root})

	body := pngBytes(t)
	asset, uerr := p.Process("photo.png", int64(len(body)), bytes.NewReader(body))
	if uerr != nil {
		t.Fatalf("Process: %v", uerr)
	}

	if asset.Format != "png" {
		t.Errorf("format = %q, want png", asset.Format)
	}
	if asset.Size != int64(len(body)) {
		t.Errorf("size = %d, want %d", asset.Size, len(body))
	}

	namePattern := regexp.MustCompile(`^[0-9a-f]{32}\.png$`)
	if !namePattern.MatchString(asset.StorageName) {
		t.Errorf("storage name %q does not match 32-hex + extension shape", asset.StorageName)
	}
	if strings.Contains(asset.StorageName, "photo") {
		t.Errorf("storage name %q leaks the original filename", asset.StorageName)
	}
	wantURL := "/media/uploads/" + asset.StorageName
	if asset.URL != wantURL {
		t.Errorf("url = %q, want %q", asset.URL, wantURL)
	}

	// Round-trip: stored bytes are identical to the validated payload.
	stored, err := os.ReadFile(asset.Path)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, body) {
		t.Error("stored bytes differ from uploaded payload")
	}
}

func TestJpegExtensionAliases(t *testing.T) {
	p := newTestPipeline(t, Config{})
	body := jpegBytes(t)

	for _, name := range []string{"a.jpg", "b.jpeg", "C.JPG"} {
		asset, uerr := p.Process(name, int64(len(body)), bytes.NewReader(body))
		if uerr != nil {
			t.Fatalf("%s: %v", name, uerr)
		}
		if asset.Format != "jpeg" {
			t.Errorf("%s: format = %q, want jpeg", name, asset.Format)
		}
	}
}

func TestGifUpload(t *testing.T) {
	p := newTestPipeline(t, Config{})
	body := gifBytes(t)

	asset, uerr := p.Process("anim.gif", int64(len(body)), bytes.NewReader(body))
	if uerr != nil {
		t.Fatalf("Process: %v", uerr)
	}
	if asset.Format != "gif" {
		t.Errorf("format = %q, want gif", asset.Format)
	}
}

func TestIdenticalPayloadsAreNotDeduplicated(t *testing.T) {
	p := newTestPipeline(t, Config{})
	body := pngBytes(t)

	first, uerr := p.Process("photo.png", int64(len(body)), bytes.NewReader(body))
	if uerr != nil {
		t.Fatalf("first upload: %v", uerr)
	}
	second, uerr := p.Process("photo.png", int64(len(body)), bytes.NewReader(body))
	if uerr != nil {
		t.Fatalf("second upload: %v", uerr)
	}

	if first.StorageName == second.StorageName {
		t.Error("identical payloads produced the same storage name")
	}
	if first.URL == second.URL {
		t.Error("identical payloads produced the same URL")
	}
	for _, a := range []*Asset{first, second} {
		if _, err := os.Stat(a.Path); err != nil {
			t.Errorf("stored asset missing: %v", err)
		}
	}
}

func TestDefaults(t *testing.T) {
	p := newTestPipeline(t, Config{})
	if p.maxBytes != DefaultMaxUploadBytes {
		t.Errorf("maxBytes = %d, want %d", p.maxBytes, DefaultMaxUploadBytes)
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if !p.allowed[ext] {
			t.Errorf("default allowlist missing %s", ext)
		}
	}
	if p.allowed[".svg"] {
		t.Error("svg must not be allowlisted by default")
	}

	if _, err := New(Config{}); err == nil {
		t.Error("New without an upload root should fail")
	}
}

func TestErrorMessagesDoNotLeakDetails(t *testing.T) {
	p := newTestPipeline(t, Config{})

	_, uerr := p.Process("../../etc/passwd.png", 10, bytes.NewReader([]byte("nope")))
	if uerr == nil {
		t.Fatal("expected rejection")
	}
	if strings.Contains(uerr.Message, "passwd") || strings.Contains(uerr.Message, "/etc") {
		t.Errorf("error message leaks the original filename: %q", uerr.Message)
	}
}
