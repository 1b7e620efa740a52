// Package rowtext normalizes stored record payloads into sender/content
// pairs and chat messages.
//
// Producers store message payloads in several shapes: chat messages with a
// role and string or multi-part content, ingestion events carrying an author,
// or a bare JSON string. Parse classifies a payload once into a Payload and
// the resolvers below walk a fixed fallback order over its fields.
package rowtext

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rcliao/channel-memory/internal/model"
)

// Kind identifies the shape a payload was stored in.
type Kind int

const (
	KindEmpty Kind = iota
	KindChat
	KindEvent
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindEvent:
		return "event"
	case KindText:
		return "text"
	default:
		return "empty"
	}
}

// Payload is a parsed record payload. Content holds the structured content
// fields (content, message, body) already flattened to text; Text holds the
// legacy text field.
type Payload struct {
	Kind       Kind
	Role       string
	Name       string
	AuthorName string
	UserName   string
	UserID     string
	Content    string
	Text       string
	ToolCallID string
	ToolCalls  []model.ToolCall
}

type rawPayload struct {
	Role       string          `json:"role"`
	Name       string          `json:"name"`
	AuthorName string          `json:"authorName"`
	UserID     string          `json:"userId"`
	User       json.RawMessage `json:"user"`
	Content    json.RawMessage `json:"content"`
	Message    json.RawMessage `json:"message"`
	Body       json.RawMessage `json:"body"`
	Text       string          `json:"text"`
	ToolCallID string          `json:"tool_call_id"`
	ToolCalls  []rawToolCall   `json:"tool_calls"`
}

type rawUser struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type rawToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type rawPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Parse classifies and decodes a stored payload. Unparseable payloads yield
// an empty Payload rather than an error; the caller falls back to the
// record's derived text.
func Parse(raw json.RawMessage) Payload {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Payload{}
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Payload{}
		}
		return Payload{Kind: KindText, Content: s}
	}

	var rp rawPayload
	if err := json.Unmarshal(raw, &rp); err != nil {
		return Payload{}
	}

	p := Payload{
		Role:       rp.Role,
		Name:       rp.Name,
		AuthorName: rp.AuthorName,
		UserID:     rp.UserID,
		Text:       rp.Text,
		ToolCallID: rp.ToolCallID,
	}
	p.UserName, p.UserID = parseUser(rp.User, p.UserID)
	for _, field := range []json.RawMessage{rp.Content, rp.Message, rp.Body} {
		if text := flattenContent(field); text != "" {
			p.Content = text
			break
		}
	}
	for _, tc := range rp.ToolCalls {
		typ := tc.Type
		if typ == "" {
			typ = "function"
		}
		p.ToolCalls = append(p.ToolCalls, model.ToolCall{
			ID:   tc.ID,
			Type: typ,
			Function: model.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: rawString(tc.Function.Arguments),
			},
		})
	}

	switch {
	case p.AuthorName != "" || p.UserName != "" || p.UserID != "":
		p.Kind = KindEvent
	case p.Role != "" || p.Content != "" || len(p.ToolCalls) > 0 || p.ToolCallID != "":
		p.Kind = KindChat
	case p.Text != "":
		p.Kind = KindText
	}
	return p
}

// parseUser reads the user field, which is either an object with name and
// id or a plain name string.
func parseUser(raw json.RawMessage, userID string) (name, id string) {
	id = userID
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", id
	}
	if raw[0] == '"' {
		_ = json.Unmarshal(raw, &name)
		return name, id
	}
	var u rawUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return "", id
	}
	if id == "" {
		id = u.ID
	}
	return u.Name, id
}

// flattenContent turns a content field into text. Strings are returned as
// is, part arrays are joined by newlines, and objects are searched for a
// nested content or text field.
func flattenContent(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return ""
		}
		var texts []string
		for _, part := range parts {
			var rp rawPart
			if err := json.Unmarshal(part, &rp); err == nil && rp.Text != "" {
				texts = append(texts, rp.Text)
				continue
			}
			if s := flattenContent(part); s != "" {
				texts = append(texts, s)
			}
		}
		return strings.Join(texts, "\n")
	case '{':
		var obj struct {
			Content json.RawMessage `json:"content"`
			Text    string          `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
		if s := flattenContent(obj.Content); s != "" {
			return s
		}
		return obj.Text
	}
	return ""
}

// rawString returns a JSON string's value, or the raw JSON for any other
// value (tool arguments are sometimes stored as objects).
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
