package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Message types emitted by the editor surface. Routes are keyed by exact
// match on these values.
const (
	TypeCompletion   = "completion"
	TypeHint         = "hint"
	TypeExplanation  = "explanation"
	TypeOptimization = "optimization"
	TypeChat         = "chat"
	TypeConfigSave   = "config.save"
	TypeConfigGet    = "config.get"
	TypeHintsReset   = "hints.reset"
)

// Envelope is the untyped inbound request shape. Payload is parsed into a
// typed variant at the validation boundary so downstream code never touches
// raw fields.
type Envelope struct {
	Type    string          `json:"type"`
	Origin  string          `json:"origin"`
	TabID   string          `json:"tabId"`
	Payload json.RawMessage `json:"payload"`
}

// Typed payload variants. Required fields are enforced with validator tags.

type CompletionRequest struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language" validate:"required"`
	// CursorPrefix is the text immediately before the cursor, when the
	// surface can supply it.
	CursorPrefix string `json:"cursorPrefix"`
}

type HintRequest struct {
	ProblemTitle string `json:"problemTitle" validate:"required"`
	Code         string `json:"code"`
	Language     string `json:"language"`
	Description  string `json:"description"`
}

type ExplanationRequest struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language"`
}

type OptimizationRequest struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

type SaveConfigRequest struct {
	Config *Settings `json:"config" validate:"required"`
}

type GetConfigRequest struct{}

type ResetHintsRequest struct {
	ProblemTitle string `json:"problemTitle" validate:"required"`
}

// Settings are the per-tab assistant preferences the surface may persist.
type Settings struct {
	Model        string  `json:"model"`
	MaxTokens    int     `json:"maxTokens"`
	Temperature  float64 `json:"temperature"`
	HintMaxLevel int     `json:"hintMaxLevel"`
	Language     string  `json:"language"`
}

// Request is the enriched request handed to a handler after validation,
// routing and the middleware chain all passed.
type Request struct {
	Envelope
	// ID identifies this dispatch for retry bookkeeping and logging.
	ID string
	// HandlerName is the resolved target handler.
	HandlerName  string
	DispatchedAt time.Time
	// Body is the typed payload variant (e.g. *HintRequest).
	Body any
}

// Handler fulfills one named request type. It returns a result value or an
// error, never both.
type Handler func(ctx context.Context, req *Request) (any, error)

// Result shapes returned by the built-in handlers.

type CompletionResult struct {
	Suggestion string `json:"suggestion"`
}

type ExplanationResult struct {
	Explanation string `json:"explanation"`
}

type OptimizationResult struct {
	Suggestion string `json:"suggestion"`
}

type ChatResult struct {
	Reply string `json:"reply"`
}

type HintResult struct {
	Level      int      `json:"level"`
	MaxReached bool     `json:"maxReached"`
	Hint       string   `json:"hint"`
	Concepts   []string `json:"concepts,omitempty"`
}

// Ports

// AIClient is the outbound text-generation collaborator. Implementations
// surface failures as *UpstreamError where an HTTP status is known.
type AIClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// SettingsStore persists per-tab assistant settings for the process
// lifetime.
type SettingsStore interface {
	Save(ctx context.Context, tabID string, s Settings) error
	Get(ctx context.Context, tabID string) (Settings, bool, error)
}
