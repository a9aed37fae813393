package models

import "time"

// Kind selects prompt template, generation parameters and cost rate.
type Kind string

const (
	KindSummary Kind = "summary"
	KindCode    Kind = "code"
	KindChat    Kind = "chat"
)

func (k Kind) Valid() bool {
	switch k {
	case KindSummary, KindCode, KindChat:
		return true
	default:
		return false
	}
}

// GenerationParams are per-call sampling settings. A nil Temperature or TopP
// leaves the provider default in place; a set zero is sent as zero.
type GenerationParams struct {
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// Float returns a pointer to v for GenerationParams literals.
func Float(v float64) *float64 {
	return &v
}

// PaperContent is the already-extracted text of an uploaded paper.
type PaperContent struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Credits      int64     `json:"credits"`
	CreatedAt    time.Time `json:"created_at"`
}

type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ContentType string

const (
	ContentSummary        ContentType = "summary"
	ContentCodeSuggestion ContentType = "code_suggestion"
	ContentChatMessage    ContentType = "chat_message"
	ContentChatResponse   ContentType = "chat_response"
)

// ChatMessage is append-only. Cost is the credits charged for producing it.
type ChatMessage struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	SessionID    string        `json:"session_id"`
	Role         Role          `json:"role"`
	ContentType  ContentType   `json:"content_type"`
	Content      string        `json:"content"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Cost         int64         `json:"cost"`
	Paper        *PaperContent `json:"paper,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

type CreditLogType string

const CreditDeduction CreditLogType = "deduction"

// CreditLogEntry records one debit and the per-kind costs behind it.
type CreditLogEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Type      CreditLogType  `json:"type"`
	Amount    int64          `json:"amount"`
	Reason    string         `json:"reason"`
	Breakdown map[Kind]int64 `json:"breakdown"`
	Overdraft bool           `json:"overdraft"`
	CreatedAt time.Time      `json:"created_at"`
}

type CodeFile struct {
	Filename string `json:"filename"`
	Code     string `json:"code"`
}

// ProjectSuggestion always carries at least one file.
type ProjectSuggestion struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Difficulty         string     `json:"difficulty"`
	Language           string     `json:"language"`
	CodeImplementation []CodeFile `json:"codeImplementation"`
}

type LLMCall struct {
	CallID       string `json:"call_id"`
	UserID       string `json:"user_id,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	Kind         Kind   `json:"kind"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	RequestID    string `json:"request_id,omitempty"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	// Provider-reported usage, zero when the provider did not report it.
	ProviderInputTokens  int       `json:"provider_input_tokens,omitempty"`
	ProviderOutputTokens int       `json:"provider_output_tokens,omitempty"`
	LatencyMs            int64     `json:"latency_ms"`
	CreatedAt            time.Time `json:"created_at"`
}

// Settlement is one debit plus the records that justify it. Stores apply it
// atomically.
type Settlement struct {
	Entry    CreditLogEntry `json:"entry"`
	Messages []ChatMessage  `json:"messages,omitempty"`
}
