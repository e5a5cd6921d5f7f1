package hash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum64(t *testing.T) {
	tests := []struct {
		name string
		data string
		sum  uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
		{"path with separator", "weights.layer1", Sum64("weights.layer1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sum, Sum64(tt.data))
		})
	}
}

func TestSuffix(t *testing.T) {
	// Fixed width, lowercase hex, stable across calls.
	for _, path := range []string{"", "test", "a.b/c", "ключ", "a\x00b"} {
		suffix := Suffix(path)
		assert.Len(t, suffix, 8)
		assert.Equal(t, fmt.Sprintf("%08x", uint32(Sum64(path))), suffix)
		assert.Equal(t, suffix, Suffix(path))
	}

	assert.Equal(t, "db678139", Suffix("test"))
	assert.NotEqual(t, Suffix("a b"), Suffix("a_b"), "keys that sanitize alike must hash apart")
}
