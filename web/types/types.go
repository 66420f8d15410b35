package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Message is a role-tagged chat turn, in the shape the completion API
// expects and the session store persists. Content keeps whatever JSON type
// the client sent (a string or a list of content parts) and fields other
// than role and content ride along in Extra, so a message is forwarded and
// stored as it arrived.
type Message struct {
	Role    string
	Content any
	Extra   map[string]json.RawMessage
}

// MarshalJSON writes role and content first, then the extra fields in key
// order.
func (m Message) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"role":`)
	role, err := json.Marshal(m.Role)
	if err != nil {
		return nil, err
	}
	buf.Write(role)

	buf.WriteString(`,"content":`)
	content, err := json.Marshal(m.Content)
	if err != nil {
		return nil, fmt.Errorf("message content: %w", err)
	}
	buf.Write(content)

	for _, k := range slices.Sorted(maps.Keys(m.Extra)) {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("message must be an object")
	}

	*m = Message{}
	if raw, ok := fields["role"]; ok {
		if err := json.Unmarshal(raw, &m.Role); err != nil {
			return fmt.Errorf("message role: %w", err)
		}
		delete(fields, "role")
	}
	if raw, ok := fields["content"]; ok {
		if err := json.Unmarshal(raw, &m.Content); err != nil {
			return fmt.Errorf("message content: %w", err)
		}
		delete(fields, "content")
	}
	if len(fields) > 0 {
		m.Extra = fields
	}
	return nil
}

// Text returns the readable text of Content: the string itself, or the
// "text" parts of a multi-part content list joined by newlines.
func (m Message) Text() string {
	switch c := m.Content.(type) {
	case string:
		return c
	case []any:
		var parts []string
		for _, part := range c {
			obj, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := obj["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// Roles used by the relay when it builds a conversation itself.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TranslateRequest is the body of POST /api/translate.
type TranslateRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages  []Message `json:"messages"`
	Model     string    `json:"model"`
	SessionID string    `json:"sessionId"`
}

// ResultResponse wraps a normalized completion. Result is usually a string
// but mirrors whatever JSON type the upstream content had.
type ResultResponse struct {
	Result any `json:"result"`
}

// ErrorResponse is returned when the upstream call fails.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail any    `json:"detail,omitempty"`
}

// OKResponse acknowledges session mutations.
type OKResponse struct {
	OK bool `json:"ok"`
}
