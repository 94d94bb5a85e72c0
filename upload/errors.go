package upload

import "net/http"

// Kind classifies pipeline failures. Each stage fails fast with exactly
// one kind; no stage after a failure runs.
type Kind int

const (
	// KindUnsupportedFormat: claimed extension is not in the allowlist.
	KindUnsupportedFormat Kind = iota + 1
	// KindPayloadTooLarge: declared or actual size exceeds the ceiling.
	KindPayloadTooLarge
	// KindInvalidImageContent: body failed to decode as an image.
	KindInvalidImageContent
	// KindExtensionMismatch: decoded format disagrees with the extension.
	KindExtensionMismatch
	// KindStorageWrite: persisting the validated bytes failed.
	KindStorageWrite
)

// String returns a stable identifier for logging.
func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindInvalidImageContent:
		return "invalid_image_content"
	case KindExtensionMismatch:
		return "extension_mismatch"
	case KindStorageWrite:
		return "storage_write_error"
	default:
		return "unknown"
	}
}

// Error is the tagged result returned for any rejected upload. Messages
// are safe to surface to clients: they never contain internal paths or
// the original filename.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps validation failures to 400 and storage failures to 500.
func (e *Error) HTTPStatus() int {
	if e.Kind == KindStorageWrite {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func reject(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
