// Package events contains the message contracts of the /ws/split stream.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeStage is sent once per pipeline state transition
	MessageTypeStage MessageType = "stage"
	// MessageTypeResult carries the archive; it is the last message on success
	MessageTypeResult MessageType = "result"
	// MessageTypeError is the last message on failure
	MessageTypeError MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// StageData describes a state transition. Key, Index and Total are set
// while monthly workbooks are being encoded.
type StageData struct {
	Stage string `json:"stage"`
	Key   string `json:"key,omitempty"`
	Index int    `json:"index,omitempty"`
	Total int    `json:"total,omitempty"`
	Kind  string `json:"kind,omitempty"`

	// Final is set on done and failed; a result or error message follows.
	Final bool `json:"final,omitempty"`
}

// StageMessage is a MessageTypeStage message
type StageMessage struct {
	BaseMessage
	Data StageData `json:"data"`
}

// ResultData mirrors the JSON split response.
type ResultData struct {
	ArchivePayload string   `json:"archivePayload"`
	FileCount      int      `json:"fileCount"`
	Entries        []string `json:"entries,omitempty"`
	RowsSkipped    int      `json:"rowsSkipped"`
}

// ResultMessage is a MessageTypeResult message
type ResultMessage struct {
	BaseMessage
	Data ResultData `json:"data"`
}

// ErrorData describes why a split failed.
type ErrorData struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// ErrorMessage is a MessageTypeError message
type ErrorMessage struct {
	BaseMessage
	Data ErrorData `json:"data"`
}

// NewBase stamps a message header.
func NewBase(t MessageType, traceID string) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().UTC(), TraceID: traceID}
}
