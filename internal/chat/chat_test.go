package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{10000, "9.8 KB"},
		{1 << 20, "1.0 MB"},
		{5 * 1 << 20, "5.0 MB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, humanSize(tt.n), "humanSize(%d)", tt.n)
	}
}
