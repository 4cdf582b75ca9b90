package utils

import "github.com/microcosm-cc/bluemonday"

var (
	bodyPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans user supplied HTML, keeping the markup allowed in post and comment bodies.
func Sanitize(input string) string {
	return bodyPolicy.Sanitize(input)
}

// SanitizeText strips all markup, for single-line fields such as titles.
func SanitizeText(input string) string {
	return plainPolicy.Sanitize(input)
}
