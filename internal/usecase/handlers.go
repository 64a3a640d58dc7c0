package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/hintsession"
	"github.com/fairyhunter13/ai-code-mentor/internal/service/resilience"
)

// AssistConfig configures the assistant handlers.
type AssistConfig struct {
	MaxOutputTokens   int
	PromptTokenBudget int
}

// AssistService implements the named handlers behind the route table. Every
// outbound AI call goes through the resilience executor.
type AssistService struct {
	ai       domain.AIClient
	exec     *resilience.Executor
	sessions *hintsession.Manager
	settings domain.SettingsStore
	cfg      AssistConfig
}

// NewAssistService constructs the handler set.
func NewAssistService(ai domain.AIClient, exec *resilience.Executor, sessions *hintsession.Manager, settings domain.SettingsStore, cfg AssistConfig) *AssistService {
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 1024
	}
	if cfg.PromptTokenBudget <= 0 {
		cfg.PromptTokenBudget = 6000
	}
	return &AssistService{ai: ai, exec: exec, sessions: sessions, settings: settings, cfg: cfg}
}

// Handlers returns the named handler table consumed by the dispatcher.
func (s *AssistService) Handlers() map[string]domain.Handler {
	return map[string]domain.Handler{
		"completion.generate":   s.HandleCompletion,
		"hint.generate":         s.HandleHint,
		"explanation.generate":  s.HandleExplanation,
		"optimization.generate": s.HandleOptimization,
		"chat.respond":          s.HandleChat,
		"config.save":           s.HandleSaveConfig,
		"config.get":            s.HandleGetConfig,
		"hints.reset":           s.HandleResetHints,
	}
}

// HandleCompletion generates a code continuation suggestion.
func (s *AssistService) HandleCompletion(ctx context.Context, req *domain.Request) (any, error) {
	body := req.Body.(*domain.CompletionRequest)
	system := "You are a code completion engine. Continue the user's code naturally. Reply with code only, no commentary."
	user := fmt.Sprintf("Language: %s\n\nCode so far:\n%s\n%s",
		body.Language, trimToBudget(body.Code, s.cfg.PromptTokenBudget), body.CursorPrefix)
	content, err := s.complete(ctx, req.ID, system, user)
	if err != nil {
		return nil, err
	}
	return domain.CompletionResult{Suggestion: content}, nil
}

// HandleExplanation explains what the submitted code does.
func (s *AssistService) HandleExplanation(ctx context.Context, req *domain.Request) (any, error) {
	body := req.Body.(*domain.ExplanationRequest)
	system := "You are a patient programming tutor. Explain the given code clearly and concisely for a learner."
	user := fmt.Sprintf("Language: %s\n\nExplain this code:\n%s",
		body.Language, trimToBudget(body.Code, s.cfg.PromptTokenBudget))
	content, err := s.complete(ctx, req.ID, system, user)
	if err != nil {
		return nil, err
	}
	return domain.ExplanationResult{Explanation: content}, nil
}

// HandleOptimization suggests a more efficient version of the code.
func (s *AssistService) HandleOptimization(ctx context.Context, req *domain.Request) (any, error) {
	body := req.Body.(*domain.OptimizationRequest)
	system := "You are a performance-minded reviewer. Suggest how to improve the time or space complexity of the given code, with the reasoning."
	user := fmt.Sprintf("Language: %s\n\nCode:\n%s",
		body.Language, trimToBudget(body.Code, s.cfg.PromptTokenBudget))
	content, err := s.complete(ctx, req.ID, system, user)
	if err != nil {
		return nil, err
	}
	return domain.OptimizationResult{Suggestion: content}, nil
}

// HandleChat answers a free-form question.
func (s *AssistService) HandleChat(ctx context.Context, req *domain.Request) (any, error) {
	body := req.Body.(*domain.ChatRequest)
	system := "You are a helpful coding assistant embedded in a problem-solving editor."
	content, err := s.complete(ctx, req.ID, system, trimToBudget(body.Message, s.cfg.PromptTokenBudget))
	if err != nil {
		return nil, err
	}
	return domain.ChatResult{Reply: content}, nil
}

// HandleHint advances the progressive session, generates a hint at the new
// level and records it back on success.
func (s *AssistService) HandleHint(ctx context.Context, req *domain.Request) (any, error) {
	body := req.Body.(*domain.HintRequest)
	cur := domain.CodeContext{Code: body.Code, Language: body.Language, Description: body.Description}

	level := s.sessions.Advance(req.TabID, body.ProblemTitle, cur)
	sctx, _ := s.sessions.GetContext(req.TabID, body.ProblemTitle)

	system, user := buildHintPrompt(body, level, sctx)
	content, err := s.complete(ctx, req.ID, system, user)
	if err != nil {
		return nil, err
	}

	if rerr := s.sessions.RecordHint(req.TabID, body.ProblemTitle, level, content, cur); rerr != nil {
		// The generated hint is still returned; only the progression
		// bookkeeping is lost.
		slog.Warn("failed to record hint",
			slog.String("tab_id", req.TabID),
			slog.String("problem", body.ProblemTitle),
			slog.Any("error", rerr))
	}

	sctx, _ = s.sessions.GetContext(req.TabID, body.ProblemTitle)
	return domain.HintResult{
		Level:      level,
		MaxReached: level >= sctx.MaxLevel && sctx.MaxLevel > 0,
		Hint:       content,
		Concepts:   sctx.Concepts,
	}, nil
}

// HandleSaveConfig persists per-tab assistant settings.
func (s *AssistService) HandleSaveConfig(ctx context.Context, req *domain.Request) (any, error) {
	body := req.Body.(*domain.SaveConfigRequest)
	if err := s.settings.Save(ctx, req.TabID, *body.Config); err != nil {
		return nil, fmt.Errorf("op=config.save: %w", err)
	}
	return map[string]bool{"saved": true}, nil
}

// HandleGetConfig returns the tab's saved settings, or defaults.
func (s *AssistService) HandleGetConfig(ctx context.Context, req *domain.Request) (any, error) {
	cfg, ok, err := s.settings.Get(ctx, req.TabID)
	if err != nil {
		return nil, fmt.Errorf("op=config.get: %w", err)
	}
	return map[string]any{"config": cfg, "saved": ok}, nil
}

// HandleResetHints deletes the hint session for the problem; the next hint
// request starts fresh at level 1.
func (s *AssistService) HandleResetHints(_ context.Context, req *domain.Request) (any, error) {
	body := req.Body.(*domain.ResetHintsRequest)
	s.sessions.Reset(req.TabID, body.ProblemTitle)
	return map[string]bool{"reset": true}, nil
}

func (s *AssistService) complete(ctx context.Context, requestID, system, user string) (string, error) {
	return s.exec.Execute(ctx, requestID, func(ctx context.Context) (string, error) {
		return s.ai.Complete(ctx, system, user, s.cfg.MaxOutputTokens)
	})
}
