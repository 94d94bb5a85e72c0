package utils

import (
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// The config loader refuses to boot without a signing secret.
	os.Setenv("JWT_SECRET", "test-secret-do-not-use")
	os.Exit(m.Run())
}

func TestSanitizeKeepsFormattingStripsScripts(t *testing.T) {
	in := `<p>hello <b>world</b></p><script>alert('x')</script>`
	out := Sanitize(in)

	if !strings.Contains(out, "<p>") || !strings.Contains(out, "<b>world</b>") {
		t.Errorf("formatting tags were stripped: %q", out)
	}
	if strings.Contains(out, "<script") || strings.Contains(out, "alert") {
		t.Errorf("script content survived sanitization: %q", out)
	}
}

func TestSanitizeRemovesEventHandlers(t *testing.T) {
	out := Sanitize(`<img src="/static/uploads/a.png" onerror="steal()">`)
	if strings.Contains(out, "onerror") {
		t.Errorf("event handler survived: %q", out)
	}
}

func TestStripTags(t *testing.T) {
	out := StripTags(`<h1>Title</h1> and <a href="http://e.com">link</a>`)
	if strings.ContainsAny(out, "<>") {
		t.Errorf("tags survived StripTags: %q", out)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "link") {
		t.Errorf("text content lost: %q", out)
	}
}
