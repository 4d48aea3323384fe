package core

import (
	"regexp"
	"strings"
)

const maxRedactedLen = 256

// Patterns for credentials that show up in connector errors and request logs.
var (
	authSchemeRe = regexp.MustCompile(`(?i)\b((?:bearer|basic)\s+)[A-Za-z0-9\-\._~\+\/]+=*`)
	kvSecretRe   = regexp.MustCompile(
		`(?i)(api[_-]?key|api[_-]?token|access[_-]?token|token|secret|password|pwd)\s*[:=]\s*["']?[^"'\s&]+["']?`,
	)
	genericKeyRe = regexp.MustCompile(`\b(sk-[A-Za-z0-9_\-]{16,}|ATATT[A-Za-z0-9_\-=]{16,})\b`)
	jwtRe        = regexp.MustCompile(`\b(eyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+)\b`)
	userInfoRe   = regexp.MustCompile(`(?i)(https?://)[^@\s/]+@`)
	emailRe      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// RedactString trims, truncates, and scrubs credentials from s.
func RedactString(s string) string {
	s = strings.TrimSpace(s)
	s = jwtRe.ReplaceAllString(s, "[JWT_REDACTED]")
	s = userInfoRe.ReplaceAllString(s, "$1[REDACTED]@")
	s = authSchemeRe.ReplaceAllString(s, "$1[REDACTED]")
	s = kvSecretRe.ReplaceAllString(s, "$1=[REDACTED]")
	s = genericKeyRe.ReplaceAllString(s, "[REDACTED]")
	s = emailRe.ReplaceAllString(s, "[EMAIL_REDACTED]")
	if len(s) > maxRedactedLen {
		s = s[:maxRedactedLen] + "…"
	}
	return s
}

// RedactError applies RedactString to an error, returning an empty string when nil.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}

var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
}

// RedactHeaders returns a copy of headers that is safe to log.
// Authorization keeps its scheme ("Bearer [REDACTED]").
func RedactHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return headers
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		lower := strings.ToLower(k)
		_, sensitive := sensitiveHeaders[lower]
		switch {
		case strings.HasSuffix(lower, "authorization"):
			out[k] = RedactString(v)
			if out[k] == strings.TrimSpace(v) && v != "" {
				out[k] = "[REDACTED]"
			}
		case sensitive, strings.Contains(lower, "token"), strings.Contains(lower, "secret"):
			out[k] = "[REDACTED]"
		default:
			out[k] = RedactString(v)
		}
	}
	return out
}
