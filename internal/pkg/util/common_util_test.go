package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "short", in: "hello", limit: 10, want: "hello"},
		{name: "exact", in: "hello", limit: 5, want: "hello"},
		{name: "ascii", in: "hello world", limit: 5, want: "hello...[truncated]"},
		{name: "multibyte boundary", in: "你好世界", limit: 4, want: "你...[truncated]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.limit))
		})
	}
}

func TestValidateDTO(t *testing.T) {
	type req struct {
		Content string `validate:"required"`
		Size    int    `validate:"gt=0"`
	}

	assert.NoError(t, ValidateDTO(&req{Content: "hi", Size: 1}))

	err := ValidateDTO(&req{Size: 1})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "Content")
		assert.Contains(t, err.Error(), "required")
	}
}
