// Package resilience classifies heterogeneous upstream failures into a
// bounded taxonomy and drives the retry loop around the outbound AI call.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

// Classify derives a Classification from an opaque error. It is
// deterministic and total: the explicit upstream status wins when present,
// then ordered message-substring predicates, and "unknown" is the terminal
// fallback.
func Classify(err error) domain.Classification {
	if err == nil {
		return domain.Classification{Category: domain.CategoryUnknown}
	}

	var ue *domain.UpstreamError
	if errors.As(err, &ue) && ue.Status != 0 {
		switch {
		case ue.Status == 401 || ue.Status == 403:
			return domain.Classification{Category: domain.CategoryAuthentication, StatusCode: ue.Status}
		case ue.Status == 429:
			return domain.Classification{Category: domain.CategoryRateLimited, StatusCode: ue.Status, RetryAfter: ue.RetryAfter}
		case ue.Status == 400:
			return domain.Classification{Category: domain.CategoryValidation, StatusCode: ue.Status}
		case ue.Status >= 500:
			return domain.Classification{Category: domain.CategoryUpstreamServer, StatusCode: ue.Status}
		}
		// Other statuses fall through to the message heuristics.
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Classification{Category: domain.CategoryTimeout}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "quota", "billing", "insufficient credits", "payment required"):
		return domain.Classification{Category: domain.CategoryQuotaExceeded}
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return domain.Classification{Category: domain.CategoryTimeout}
	case containsAny(msg, "not configured", "missing api key", "invalid configuration", "no model selected"):
		return domain.Classification{Category: domain.CategoryConfiguration}
	case containsAny(msg, "rate limit", "too many requests"):
		return domain.Classification{Category: domain.CategoryRateLimited}
	case containsAny(msg, "unauthorized", "authentication", "invalid api key"):
		return domain.Classification{Category: domain.CategoryAuthentication}
	case containsAny(msg, "connection refused", "connection reset", "no such host", "network", "dns", "broken pipe", "unexpected eof"):
		return domain.Classification{Category: domain.CategoryNetwork}
	}
	return domain.Classification{Category: domain.CategoryUnknown}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// UserMessage maps a classification to one fixed, non-technical explanation
// string. Display only; control flow never depends on it.
func UserMessage(c domain.Classification) string {
	switch c.Category {
	case domain.CategoryNetwork:
		return "We couldn't reach the AI service. Check your internet connection and try again."
	case domain.CategoryAuthentication:
		return "The AI service rejected your credentials. Check your API key in the assistant settings."
	case domain.CategoryRateLimited:
		if c.RetryAfter > 0 {
			return fmt.Sprintf("You're sending requests too quickly. Wait %d seconds and try again.", int(c.RetryAfter.Seconds()))
		}
		return "You're sending requests too quickly. Wait a moment and try again."
	case domain.CategoryQuotaExceeded:
		return "Your AI usage quota is exhausted. Review your plan or billing settings."
	case domain.CategoryTimeout:
		return "The AI service took too long to respond. Try again in a moment."
	case domain.CategoryValidation:
		return "The request was rejected as invalid. Adjust your input and try again."
	case domain.CategoryUpstreamServer:
		return "The AI service is having trouble right now. Try again shortly."
	case domain.CategoryConfiguration:
		return "The assistant isn't configured correctly. Review your settings."
	}
	return "Something unexpected went wrong. Try again."
}
