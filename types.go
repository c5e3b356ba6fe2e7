package transapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTTL is how long a successful lookup stays in the store.
	DefaultTTL = 3 * time.Hour

	// FetchTimeout bounds a single call to the translation service.
	FetchTimeout = 30 * time.Second
)

// Kind identifies the software unit a lookup is for.
type Kind string

const (
	// KindPlugin requests translations for a plugin. Requires a slug.
	KindPlugin Kind = "plugins"
	// KindTheme requests translations for a theme. Requires a slug.
	KindTheme Kind = "themes"
	// KindCore requests translations for the host itself. Never carries a slug.
	KindCore Kind = "core"
)

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPlugin, KindTheme, KindCore:
		return true
	}
	return false
}

// ParseKind accepts the wire values plus their singular forms ("plugin", "theme").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "plugins", "plugin":
		return KindPlugin, nil
	case "themes", "theme":
		return KindTheme, nil
	case "core":
		return KindCore, nil
	}
	return Kind(s), &InvalidRequestError{Kind: Kind(s), Message: "invalid translation type"}
}

// LookupRequest asks which translations exist for one unit, version and locale.
type LookupRequest struct {
	Kind    Kind   // plugins, themes or core
	Slug    string // Unit identifier (e.g., "akismet"); ignored for core
	Version string // Version of the unit being translated
	Locale  string // Requester locale (e.g., "fr_FR")
}

// Validate checks the request at the boundary. The kind must be supported and
// plugin/theme lookups must name a slug.
func (r LookupRequest) Validate() error {
	if !r.Kind.Valid() {
		return &InvalidRequestError{Kind: r.Kind, Message: "invalid translation type"}
	}
	if r.Kind != KindCore && r.Slug == "" {
		return &InvalidRequestError{Kind: r.Kind, Message: "slug is required"}
	}
	return nil
}

// Normalized returns a copy with the slug dropped for core lookups. The locale
// is left exactly as the requester gave it.
func (r LookupRequest) Normalized() LookupRequest {
	if r.Kind == KindCore {
		r.Slug = ""
	}
	return r
}

// TranslationResult is the document returned by the translation service.
// The decoded value is either a JSON object or a JSON array; the raw bytes are
// kept so the result can be stored and served without re-encoding.
type TranslationResult struct {
	raw json.RawMessage
	doc any
}

// DecodeResult parses body as a translation document. Only JSON objects and
// arrays are accepted.
func DecodeResult(body []byte) (*TranslationResult, error) {
	trimmed := bytes.TrimSpace(body)
	var doc any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	switch doc.(type) {
	case map[string]any, []any:
	default:
		return nil, fmt.Errorf("expected JSON object or array, got %s", jsonTypeName(doc))
	}
	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	return &TranslationResult{raw: raw, doc: doc}, nil
}

// Raw returns the document bytes exactly as received.
func (r *TranslationResult) Raw() []byte {
	return r.raw
}

// Document returns the decoded value: map[string]any or []any.
func (r *TranslationResult) Document() any {
	return r.doc
}

// Object returns the document as a JSON object, if it is one.
func (r *TranslationResult) Object() (map[string]any, bool) {
	m, ok := r.doc.(map[string]any)
	return m, ok
}

// Array returns the document as a JSON array, if it is one.
func (r *TranslationResult) Array() ([]any, bool) {
	a, ok := r.doc.([]any)
	return a, ok
}

// MarshalJSON implements json.Marshaler.
func (r *TranslationResult) MarshalJSON() ([]byte, error) {
	if r == nil || len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler with the same shape rules as DecodeResult.
func (r *TranslationResult) UnmarshalJSON(data []byte) error {
	if r == nil {
		return errors.New("transapi: UnmarshalJSON on nil TranslationResult")
	}
	decoded, err := DecodeResult(data)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}
