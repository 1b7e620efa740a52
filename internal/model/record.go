// Package model defines the core channel log data types.
package model

import (
	"encoding/json"
	"time"
)

// Roles used by chat messages and stored records.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Record is one stored message event of a channel. Records are append-only.
type Record struct {
	ID          string          `json:"id"`
	ChannelID   string          `json:"channel_id"`
	TS          time.Time       `json:"ts"`
	Payload     json.RawMessage `json:"payload"`
	DerivedText string          `json:"derived_text,omitempty"`
	Role        string          `json:"role,omitempty"`
	TurnID      string          `json:"turn_id,omitempty"`
}

// Row is a Record together with its 1-based position within its channel.
type Row struct {
	Record
	RN int `json:"rn"`
}

// ToolCall is a function call requested by an assistant message.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the called function and carries its raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a chat message in the shape sent to a language model.
type Message struct {
	Role       string     `json:"role"`
	Name       string     `json:"name,omitempty"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Period is a summarized, fixed-size window of row numbers for one channel.
type Period struct {
	ChannelID string    `json:"channel_id"`
	StartIdx  int       `json:"start_idx"`
	EndIdx    int       `json:"end_idx"`
	StartTS   time.Time `json:"start_ts"`
	EndTS     time.Time `json:"end_ts"`
	Summary   string    `json:"summary"`
	Model     string    `json:"model"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether rn falls inside the period.
func (p Period) Contains(rn int) bool {
	return rn >= p.StartIdx && rn <= p.EndIdx
}

// Item is one line of keyword search output.
type Item struct {
	ChannelID string    `json:"channel_id"`
	RN        int       `json:"rn"`
	TS        time.Time `json:"ts"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
}

// ChannelInfo summarizes one channel of the store.
type ChannelInfo struct {
	ChannelID string    `json:"channel_id"`
	Rows      int       `json:"rows"`
	Periods   int       `json:"periods"`
	LastTS    time.Time `json:"last_ts"`
}
