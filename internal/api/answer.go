package api

import (
	"bytes"
	"encoding/json"
)

// UnexpectedFormat is reported in place of a report when the upstream body is a JSON scalar other than a string
const UnexpectedFormat = "Error: Unexpected response format"

// Answer is an upstream response body
type Answer struct {
	Body []byte
}

// Text returns the answer as plain text. A body that is a JSON string
// literal is decoded; anything else is returned verbatim.
func (a *Answer) Text() string {
	trimmed := bytes.TrimSpace(a.Body)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(a.Body)
}

// Payload returns the answer as a JSON value for embedding in a response.
// JSON strings, objects and arrays pass through as-is. JSON numbers,
// booleans and null become the UnexpectedFormat message. Anything else,
// including an empty body, becomes a JSON string.
func (a *Answer) Payload() json.RawMessage {
	trimmed := bytes.TrimSpace(a.Body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return jsonString(string(a.Body))
	}
	switch trimmed[0] {
	case '"', '{', '[':
		return json.RawMessage(trimmed)
	default:
		return jsonString(UnexpectedFormat)
	}
}

func jsonString(s string) json.RawMessage {
	// Marshalling a string cannot fail.
	b, _ := json.Marshal(s)
	return b
}
