package upstream

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxProviderMessage bounds how much of a non-JSON provider body is passed
// on to callers.
const maxProviderMessage = 200

// TransportError is returned when the provider could not be reached or its
// body could not be read. The wrapped error never contains the provider key.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is returned when the provider answered with a non-2xx status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.ProviderMessage())
}

// ProviderMessage extracts the human readable reason from the provider body.
// WeatherAPI errors look like {"error":{"code":1006,"message":"..."}}; any
// other body is returned trimmed and truncated.
func (e *StatusError) ProviderMessage() string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return truncate(strings.TrimSpace(e.Body), maxProviderMessage)
}

// DecodeError is returned when a provider body does not match the expected
// schema.
type DecodeError struct {
	Detail string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %v", e.Detail, e.Err)
	}
	return "decode " + e.Detail
}

func (e *DecodeError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
