// Package redact scrubs sensitive information from strings before they
// are logged or embedded in error responses: database connection
// strings, credentials, API keys, signed tokens, SQL fragments, and
// internal host or path details.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
)

// rule pairs a pattern with its replacement. Rules apply in order, so
// the more specific credential patterns run before the broad host and
// path ones.
type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

var rules = []rule{
	// Connection strings with inline credentials
	{regexp.MustCompile(`(?i)(postgres|mysql|redis|db|database|connection)://[^@\s]+@`), RedactedCredentialPlaceholder},

	// Passwords and secrets in key=value or key: value form
	{regexp.MustCompile(`(?i)(password|passwd|pwd|secret)([=:\s]['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},

	// API keys and tokens
	{regexp.MustCompile(`(?i)(api[_-]?key|token|key|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), RedactedKeyPlaceholder},

	// Signed JWTs (three base64url segments)
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},

	// SQL fragments that leak schema details
	{regexp.MustCompile(`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)[\s\w,*()]+(?:FROM|INTO|SET|TABLE|DATABASE)(?:[\s\w,*()='"]+)?`), "[REDACTED_SQL]"},

	// Internal hostnames with optional ports
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`), "[REDACTED_HOST]"},

	// Filesystem paths
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`), RedactedPathPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
