// Package ai provides AI client adapters.
package ai

import (
	"context"
	"strings"
	"time"
)

// Mock is a deterministic AI client for local development and tests. It is
// used automatically when no provider key is configured.
type Mock struct {
	// Latency simulates provider latency; zero means none.
	Latency time.Duration
}

// NewMock constructs a Mock client.
func NewMock() *Mock { return &Mock{} }

// Complete returns canned content keyed on the prompt's intent.
func (m *Mock) Complete(ctx context.Context, systemPrompt, userPrompt string, _ int) (string, error) {
	if m.Latency > 0 {
		t := time.NewTimer(m.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}

	system := strings.ToLower(systemPrompt)
	switch {
	case strings.Contains(system, "completion engine"):
		return "// completion: continue iterating and return the result\n", nil
	case strings.Contains(system, "hint level"):
		return "Think about what a hash map gives you: constant-time lookup of values you've already seen.", nil
	case strings.Contains(system, "tutor"):
		return "This code walks the input once and accumulates a running result.", nil
	case strings.Contains(system, "reviewer"):
		return "The nested loop makes this O(n^2); a hash map brings it down to O(n).", nil
	default:
		return "Happy to help - what part of the problem is giving you trouble?", nil
	}
}
