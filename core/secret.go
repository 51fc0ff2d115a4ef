package core

import "strings"

// Secret holds the API key. Its value never appears in String(), GoString(),
// or JSON/text marshaling, so it cannot leak through logs or config dumps.
//
//	key := NewSecret("tsk_abc123")
//	fmt.Println(key)   // [REDACTED]
//	key.Mask()         // tsk_…c123
//	key.Expose()       // tsk_abc123
type Secret struct {
	value string
}

// NewSecret creates a Secret, trimming surrounding whitespace.
func NewSecret(value string) Secret {
	return Secret{value: strings.TrimSpace(value)}
}

// String returns a redacted placeholder.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString returns a redacted placeholder for %#v formatting.
func (s Secret) GoString() string {
	return "core.Secret{[REDACTED]}"
}

// MarshalJSON returns a redacted JSON string.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}

// MarshalText returns a redacted text representation (used by YAML encoders).
func (s Secret) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

// Mask returns a short identifying form of the key: its prefix up to the
// first underscore and its last four characters. Keys shorter than 12
// characters are fully masked.
func (s Secret) Mask() string {
	if len(s.value) < 12 {
		return "****"
	}
	prefix := ""
	if i := strings.IndexByte(s.value, '_'); i > 0 && i < 8 {
		prefix = s.value[:i+1]
	}
	return prefix + "…" + s.value[len(s.value)-4:]
}

// Expose returns the actual secret value. Only the transport should call it,
// to build the Authorization header.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty returns true if the secret value is empty.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}
