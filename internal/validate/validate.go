// Package validate holds the pure upload checks that run before any network
// call. The same rules gate the client-facing speculative check and the
// server-side re-validation, so a bypassed client cannot sneak past them.
package validate

import (
	"errors"
	"strings"
)

// DefaultMaxBytes caps uploads at 5 MiB.
const DefaultMaxBytes = 5 << 20

var (
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedExtensions = map[string]struct{}{
	"pdf":  {},
	"doc":  {},
	"docx": {},
}

// Check applies the upload rules in order: size first, then extension. The
// first failing rule wins. A non-positive maxBytes falls back to
// DefaultMaxBytes. Check has no side effects and may be called speculatively.
func Check(name string, sizeBytes, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if sizeBytes > maxBytes {
		return ErrFileTooLarge
	}
	if _, ok := allowedExtensions[Extension(name)]; !ok {
		return ErrUnsupportedType
	}
	return nil
}

// Extension returns the lower-cased substring after the last dot, or "" when
// the name has no dot.
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// SanitizeName replaces every byte outside [A-Za-z0-9._-] with an underscore
// so the result is safe as a storage key. Idempotent.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
