package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptText(t *testing.T) {
	assert.Equal(t, "only", PromptText([]Message{{Role: "user", Content: "only"}}))
	assert.Equal(t, "system: be terse\n\nuser: hi", PromptText([]Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}))
	assert.Empty(t, PromptText(nil))
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.Complete(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = Unconfigured{}.ListModels(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
