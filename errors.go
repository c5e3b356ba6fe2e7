package transapi

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// SupportURL is linked from the generic failure message shown to users.
const SupportURL = "https://wordpress.org/support/forums/"

// InvalidRequestError indicates the caller sent a request the service cannot route.
// No store access or network call happens when this is returned.
type InvalidRequestError struct {
	Kind    Kind
	Message string
}

func (e *InvalidRequestError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("invalid request (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

// TransportError indicates the translation service was unreachable or too slow.
type TransportError struct {
	Endpoint string
	Cause    error
}

func (e *TransportError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("transport error: %s: %v", e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("transport error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the failure was a deadline or client timeout.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Cause, &t) {
		return t.Timeout()
	}
	return false
}

// InvalidPayloadError indicates the service answered but the body was not a
// translation document. Body holds the raw response for diagnostics.
type InvalidPayloadError struct {
	Body       []byte
	StatusCode int
	Cause      error
}

func (e *InvalidPayloadError) Error() string {
	msg := "invalid payload"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("invalid payload (HTTP %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if s := e.Summary(); s != "" {
		msg = fmt.Sprintf("%s: %q", msg, s)
	}
	return msg
}

func (e *InvalidPayloadError) Unwrap() error {
	return e.Cause
}

// Summary returns a short description of the body. HTML error pages are
// reduced to their title; anything else is truncated to 120 bytes without
// splitting a rune.
func (e *InvalidPayloadError) Summary() string {
	body := bytes.TrimSpace(e.Body)
	if len(body) == 0 {
		return ""
	}
	if looksLikeHTML(body) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return title
			}
			if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
				return h1
			}
		}
	}
	if len(body) <= 120 {
		return string(body)
	}
	cut := 117
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(body[:min(len(body), 256)])
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.Contains(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<title"))
}

// UserMessage renders err the way a host should present it to a site operator.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *InvalidRequestError
	if errors.As(err, &reqErr) {
		if reqErr.Message == "" {
			return "Invalid translation request."
		}
		r, n := utf8.DecodeRuneInString(reqErr.Message)
		return string(unicode.ToUpper(r)) + reqErr.Message[n:] + "."
	}
	return fmt.Sprintf("An unexpected error occurred. Something may be wrong with the translation API "+
		"or this server's configuration. If you continue to have problems, please try the support forums (%s).", SupportURL)
}
