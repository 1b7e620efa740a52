package rowtext

import (
	"fmt"
	"strings"

	"github.com/rcliao/channel-memory/internal/model"
)

// DefaultMaxCodeLines is the longest fenced code block kept verbatim when
// collapsing is enabled.
const DefaultMaxCodeLines = 30

const unknown = "unknown"

// Options configures extraction.
type Options struct {
	CollapseCode bool
	MaxCodeLines int
}

// DefaultOptions returns options with code collapsing enabled.
func DefaultOptions() Options {
	return Options{CollapseCode: true, MaxCodeLines: DefaultMaxCodeLines}
}

// Extracted is the normalized text of one row.
type Extracted struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Extract resolves the sender and content of a stored row.
//
// Role: payload role, then the record role, then "unknown".
// Author: authorName, user.name, userId, role, then "unknown".
// Content: structured content fields, then the legacy text field, then the
// record's derived text.
func Extract(row model.Record, opts Options) Extracted {
	p := Parse(row.Payload)
	role := Role(p, row)
	author := firstNonEmpty(p.AuthorName, p.UserName, p.UserID, role, unknown)

	content := Content(p, row)
	if opts.CollapseCode {
		limit := opts.MaxCodeLines
		if limit <= 0 {
			limit = DefaultMaxCodeLines
		}
		content = CollapseCode(content, limit)
	}
	return Extracted{Sender: role + "|" + author, Content: content}
}

// Role resolves the role of a row.
func Role(p Payload, row model.Record) string {
	return firstNonEmpty(p.Role, row.Role, unknown)
}

// Content resolves the content of a row without collapsing code.
func Content(p Payload, row model.Record) string {
	if c := firstNonEmpty(p.Content, p.Text, row.DerivedText); c != "" {
		return c
	}
	if len(p.ToolCalls) > 0 {
		names := make([]string, len(p.ToolCalls))
		for i, tc := range p.ToolCalls {
			names[i] = tc.Function.Name
		}
		return "[tool calls: " + strings.Join(names, ", ") + "]"
	}
	return ""
}

// ToMessage decodes a row into a chat message. Rows whose role cannot be
// resolved are treated as user messages.
func ToMessage(row model.Record) model.Message {
	p := Parse(row.Payload)
	role := firstNonEmpty(p.Role, row.Role, model.RoleUser)
	content := firstNonEmpty(p.Content, p.Text)
	if content == "" && len(p.ToolCalls) == 0 {
		content = row.DerivedText
	}
	return model.Message{
		Role:       role,
		Name:       p.Name,
		Content:    content,
		ToolCallID: p.ToolCallID,
		ToolCalls:  p.ToolCalls,
	}
}

// CollapseCode replaces every fenced code block longer than maxLines with a
// one-line placeholder. An unterminated fence runs to the end of the text.
func CollapseCode(text string, maxLines int) string {
	if !strings.Contains(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	var out []string
	var block []string
	inFence := false

	flush := func(closed bool) {
		body := len(block) - 1
		if closed {
			body--
		}
		if body > maxLines {
			out = append(out, fmt.Sprintf("«code %d lines»", body))
		} else {
			out = append(out, block...)
		}
		block = nil
	}

	for _, line := range lines {
		isFence := strings.HasPrefix(strings.TrimSpace(line), "```")
		if !inFence {
			if isFence {
				inFence = true
				block = append(block, line)
				continue
			}
			out = append(out, line)
			continue
		}
		block = append(block, line)
		if isFence {
			inFence = false
			flush(true)
		}
	}
	if inFence {
		flush(false)
	}
	return strings.Join(out, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
