package gemini

import (
	"context"
	"testing"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
)

func TestNew_RequiresKey(t *testing.T) {
	c, err := New(context.Background(), Config{})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, commonModels.ErrNotConfigured)
}
