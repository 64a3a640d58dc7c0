package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-code-mentor/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

// hintGuidance describes the disclosure depth allowed at each level band.
func hintGuidance(level, maxLevel int) string {
	switch {
	case level <= 1:
		return "Give a single conceptual nudge: name the general idea or data structure to think about. Do not describe the algorithm or show code."
	case level == 2:
		return "Point at the key observation that unlocks the problem. Still no algorithm steps, no code."
	case level == 3:
		return "Outline the approach step by step in plain language. No code yet."
	case level >= maxLevel:
		return "Walk through the implementation in detail. Short code fragments are allowed, but leave the final assembly to the learner."
	default:
		return "Describe the implementation strategy, with pseudocode if helpful."
	}
}

// buildHintPrompt constructs a leveled, context-aware hint prompt from the
// request and the session's read view.
func buildHintPrompt(body *domain.HintRequest, level int, sctx domain.SessionContext) (system, user string) {
	system = fmt.Sprintf(
		"You are a mentor helping a learner solve %q without giving the solution away. This is hint level %d of %d. %s",
		body.ProblemTitle, level, sctx.MaxLevel, hintGuidance(level, sctx.MaxLevel))

	var b strings.Builder
	if body.Description != "" {
		fmt.Fprintf(&b, "Problem description:\n%s\n\n", body.Description)
	}
	if body.Code != "" {
		fmt.Fprintf(&b, "Learner's current code (%s):\n%s\n\n", body.Language, body.Code)
	}
	if len(sctx.Hints) > 0 {
		b.WriteString("Hints already given:\n")
		for _, h := range sctx.Hints {
			fmt.Fprintf(&b, "%d. %s\n", h.Level, h.Content)
		}
		b.WriteString("\nThe next hint must go one step deeper without repeating these.\n")
	}
	if len(sctx.Concepts) > 0 {
		fmt.Fprintf(&b, "Concepts already surfaced: %s\n", strings.Join(sctx.Concepts, ", "))
	}
	return system, b.String()
}

// trimToBudget truncates text so it fits the prompt token budget, keeping
// the tail (the most recent code is usually what matters).
func trimToBudget(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	n := tokencount.CountTokensDefault(text)
	if n <= budget {
		return text
	}
	// Approximate: shrink proportionally by runes, then re-check once.
	runes := []rune(text)
	keep := len(runes) * budget / n
	if keep <= 0 || keep >= len(runes) {
		return text
	}
	trimmed := string(runes[len(runes)-keep:])
	if tokencount.CountTokensDefault(trimmed) > budget {
		trimmed = string(runes[len(runes)-keep/2:])
	}
	return trimmed
}
