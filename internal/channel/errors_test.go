package channel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("page_size", "must be <= %d, got %d", 100, 250)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "page_size")
	assert.Contains(t, err.Error(), "250")

	wrapped := fmt.Errorf("list contacts: %w", err)
	assert.True(t, IsValidation(wrapped))
}

func TestIsValidationOnSentinels(t *testing.T) {
	assert.False(t, IsValidation(ErrNotFound))
	assert.False(t, IsValidation(ErrBackendUnavailable))
	assert.False(t, IsValidation(nil))
}

func TestSentinelWrapping(t *testing.T) {
	err := fmt.Errorf("contact 42: %w", ErrNotFound)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrBackendUnavailable))
}
