package utils

import "github.com/microcosm-cc/bluemonday"

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans rich-text HTML content to prevent XSS attacks while
// keeping the markup the editor produces.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// StripTags removes all markup, used for excerpts and plain-text fields.
func StripTags(input string) string {
	return stripper.Sanitize(input)
}
