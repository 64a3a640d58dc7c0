package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokensDefault(t *testing.T) {
	assert.Equal(t, 0, CountTokensDefault(""))

	short := CountTokensDefault("hello world")
	long := CountTokensDefault("hello world hello world hello world hello world")
	assert.Greater(t, short, 0)
	assert.Greater(t, long, short)
}
