package util

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewSessionID(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "hello", 50, "hello"},
		{"exact", strings.Repeat("x", 50), 50, strings.Repeat("x", 50)},
		{"long", strings.Repeat("x", 51), 50, strings.Repeat("x", 50) + "..."},
		{"multibyte", "图书馆开放时间是什么", 4, "图书馆开..."},
		{"trimmed", "  padded  ", 50, "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateString(tt.in, tt.max))
		})
	}
}
