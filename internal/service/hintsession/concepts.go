package hintsession

import (
	"strings"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

// conceptKeywords are the algorithmic concepts recognized in hint content.
// Matching is case-insensitive substring search over the hint text.
var conceptKeywords = []string{
	"hash map",
	"hash table",
	"two pointers",
	"sliding window",
	"binary search",
	"dynamic programming",
	"memoization",
	"recursion",
	"backtracking",
	"greedy",
	"divide and conquer",
	"breadth-first search",
	"depth-first search",
	"bfs",
	"dfs",
	"topological sort",
	"union find",
	"prefix sum",
	"heap",
	"priority queue",
	"stack",
	"queue",
	"linked list",
	"binary tree",
	"trie",
	"graph",
	"sorting",
	"bit manipulation",
}

// ExtractConcepts returns the distinct concept keywords present in content,
// in keyword-list order.
func ExtractConcepts(content string) []string {
	lower := strings.ToLower(content)
	var out []string
	for _, kw := range conceptKeywords {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// deriveKind bands the hint kind by level, refined by code shape: early
// levels nudge concepts, later levels walk the approach or implementation.
func deriveKind(level int, content string) domain.HintKind {
	switch {
	case hasCodeShape(content):
		return domain.HintImplementation
	case level <= 2:
		return domain.HintConceptual
	case level == 3:
		return domain.HintApproach
	default:
		return domain.HintImplementation
	}
}

// hasCodeShape reports whether content looks like it contains code: a fenced
// block or a dense run of code punctuation.
func hasCodeShape(content string) bool {
	if strings.Contains(content, "```") {
		return true
	}
	marks := 0
	for _, r := range content {
		switch r {
		case '{', '}', ';', '=', '(', ')':
			marks++
		}
	}
	return len(content) > 0 && marks >= 8
}
