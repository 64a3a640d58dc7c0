package hintsession

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

func TestExtractConcepts(t *testing.T) {
	got := ExtractConcepts("Try a Hash Map first; if memory matters, two pointers over a sorted copy also works.")
	assert.Equal(t, []string{"hash map", "two pointers"}, got)

	assert.Empty(t, ExtractConcepts("just think about the problem"))
}

func TestDeriveKind(t *testing.T) {
	assert.Equal(t, domain.HintConceptual, deriveKind(1, "think about lookups"))
	assert.Equal(t, domain.HintConceptual, deriveKind(2, "the key insight is order"))
	assert.Equal(t, domain.HintApproach, deriveKind(3, "first sort, then scan"))
	assert.Equal(t, domain.HintImplementation, deriveKind(4, "write the loop"))
	// A fenced code block forces implementation regardless of level.
	assert.Equal(t, domain.HintImplementation, deriveKind(1, "```go\nfor i := range xs {}\n```"))
}

func TestHasCodeShape(t *testing.T) {
	assert.True(t, hasCodeShape("```python\nprint(1)\n```"))
	assert.True(t, hasCodeShape("seen = {}; for (i = 0; i < n; i++) { seen[a[i]] = i; }"))
	assert.False(t, hasCodeShape("use a hash map to remember what you have seen"))
	assert.False(t, hasCodeShape(""))
}
