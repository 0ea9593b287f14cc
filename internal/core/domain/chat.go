package domain

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Source identifies a cited passage for display alongside an answer.
// Sources are deduplicated by (Filename, Page), first seen wins.
type Source struct {
	// Filename is the relative path of the cited document.
	Filename string `json:"filename"`

	// Page is the 1-based page number of the cited chunk.
	Page int `json:"page"`

	// Snippet is a bounded preview of the cited chunk text.
	Snippet string `json:"snippet"`
}

// Answer is a complete generated response with its citations.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"answer"`

	// Sources lists the cited passages in first-retrieved order.
	Sources []Source `json:"sources"`
}

// StreamEventType discriminates events on an answer stream.
type StreamEventType string

// Stream event types, in emission order: zero or more tokens, then
// sources, then done. An error event terminates the stream and carries
// a human-readable message; tokens already delivered are not retracted.
const (
	StreamToken   StreamEventType = "token"
	StreamSources StreamEventType = "sources"
	StreamDone    StreamEventType = "done"
	StreamError   StreamEventType = "error"
)

// StreamEvent is one element of a streamed answer.
type StreamEvent struct {
	Type StreamEventType

	// Token is set for StreamToken and StreamError events.
	Token string

	// Sources is set for StreamSources events.
	Sources []Source
}
