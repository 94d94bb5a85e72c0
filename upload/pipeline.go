// Package upload implements the validation and secure-storage pipeline
// for rich-text editor image attachments. A request flows through a
// fixed sequence of stages (extension allowlist, size guard, content
// decode, name generation, storage write) and any failing stage
// short-circuits with a typed *Error.
package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxUploadBytes caps uploads at 10 MiB unless configured otherwise.
const DefaultMaxUploadBytes = 10 * 1024 * 1024

// defaultExtensions are the claimed-filename extensions accepted when the
// configuration does not override them.
var defaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Config is passed explicitly at construction time; the pipeline never
// consults process-wide settings.
type Config struct {
	// MaxUploadBytes is the payload ceiling, enforced against both the
	// declared content length and the actual bytes read.
	MaxUploadBytes int64
	// AllowedExtensions lists accepted filename extensions including the
	// leading dot, e.g. ".png".
	AllowedExtensions []string
	// UploadRoot is the directory all validated assets are written under.
	// Relative paths are resolved against the working directory.
	UploadRoot string
	// PublicBaseURL prefixes generated storage names to form public URLs.
	PublicBaseURL string
}

// Asset describes a successfully validated and stored upload. It is
// never mutated after creation.
type Asset struct {
	Format      string // detected encoding: jpeg, png, gif or webp
	Size        int64  // stored byte length
	StorageName string // generated name, independent of the client filename
	Path        string // absolute filesystem path under the upload root
	URL         string // public URL for the stored asset
}

// Pipeline validates and stores uploads. It holds no cross-request
// mutable state and is safe for concurrent use.
type Pipeline struct {
	maxBytes int64
	allowed  map[string]bool
	root     string
	baseURL  string

	// decode is swappable so tests can assert the decoder is never
	// invoked for inputs rejected by earlier stages.
	decode func(data []byte) (string, error)
}

// New builds a Pipeline from cfg, applying defaults for zero values,
// resolving the upload root to an absolute path and creating it.
func New(cfg Config) (*Pipeline, error) {
	if cfg.UploadRoot == "" {
		return nil, fmt.Errorf("upload root must be configured")
	}
	root, err := filepath.Abs(cfg.UploadRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}

	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	exts := cfg.AllowedExtensions
	if len(exts) == 0 {
		exts = defaultExtensions
	}
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	return &Pipeline{
		maxBytes: maxBytes,
		allowed:  allowed,
		root:     root,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		decode:   sniffImage,
	}, nil
}

// Process runs the full pipeline for one upload. filename is the
// client-claimed name (trusted only for its extension), declaredSize the
// claimed content length (0 or negative when unknown), and r the body.
// It returns the stored asset or the first stage failure.
func (p *Pipeline) Process(filename string, declaredSize int64, r io.Reader) (*Asset, *Error) {
	ext, ok := p.checkExtension(filename)
	if !ok {
		return nil, reject(KindUnsupportedFormat, "unsupported file type; allowed: "+p.allowedList())
	}

	// Bound worst-case decode work before touching the body: a declared
	// size over the ceiling never reaches the reader.
	if declaredSize > p.maxBytes {
		return nil, reject(KindPayloadTooLarge, fmt.Sprintf("file too large; maximum size is %d bytes", p.maxBytes))
	}

	// The declared length can lie, so the ceiling is re-enforced against
	// the bytes actually read.
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, reject(KindInvalidImageContent, "could not read uploaded file")
	}
	if int64(len(data)) > p.maxBytes {
		return nil, reject(KindPayloadTooLarge, fmt.Sprintf("file too large; maximum size is %d bytes", p.maxBytes))
	}

	format, err := p.decode(data)
	if err != nil {
		return nil, reject(KindInvalidImageContent, "invalid image file")
	}
	if format != formatForExtension(ext) {
		return nil, reject(KindExtensionMismatch, "file content does not match its extension")
	}

	asset, err := p.persist(ext, data)
	if err != nil {
		return nil, reject(KindStorageWrite, "failed to store file")
	}
	asset.Format = format
	return asset, nil
}

// checkExtension extracts and validates the lowercase extension of the
// claimed filename. Empty names, names without an extension and bare
// trailing dots are all rejected.
func (p *Pipeline) checkExtension(filename string) (string, bool) {
	if strings.TrimSpace(filename) == "" {
		return "", false
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" || ext == "." {
		return "", false
	}
	return ext, p.allowed[ext]
}

func (p *Pipeline) allowedList() string {
	exts := make([]string, 0, len(p.allowed))
	for e := range p.allowed {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// formatForExtension maps a claimed extension to the decoder format name
// it must produce. jpg and jpeg are the same encoding.
func formatForExtension(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return ""
	}
}

