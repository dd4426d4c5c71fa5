package model

// Role identifies the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry of a chat session log
type ConversationTurn struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations"`
}

// ChatResult is returned by the chat pipeline
type ChatResult struct {
	SessionID string     `json:"session_id"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// HistoryResult lists the turns of a session in order
type HistoryResult struct {
	SessionID string             `json:"session_id"`
	History   []ConversationTurn `json:"history"`
}

// ClearResult acknowledges a session reset
type ClearResult struct {
	SessionID string `json:"session_id"`
	Cleared   bool   `json:"cleared"`
}
