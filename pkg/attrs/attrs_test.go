package attrs

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"missing", []any{"reason", "x"}, ""},
		{"pair", []any{"reason", "x", "initiator", "dpo"}, "dpo"},
		{"attr", []any{slog.String("initiator", "ops")}, "ops"},
		{"later wins", []any{"initiator", "a", slog.String("initiator", "b")}, "b"},
		{"non-string value", []any{"initiator", 7}, ""},
		{"dangling key", []any{"initiator"}, ""},
		{"value is not mistaken for a key", []any{"reason", "initiator", "x", "y"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.args, "initiator"))
		})
	}
}
