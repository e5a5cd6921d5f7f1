package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// settings mimics the shape of the archive writer configuration that the
// public packages apply options to.
type settings struct {
	inlineLimit int
	compression string
	aliasing    bool
}

func (s *settings) setInlineLimit(n int) error {
	if n < 0 {
		return errors.New("inline limit cannot be negative")
	}
	s.inlineLimit = n

	return nil
}

func TestApply(t *testing.T) {
	t.Run("AppliesInOrder", func(t *testing.T) {
		s := &settings{aliasing: true}

		err := Apply(s,
			New(func(s *settings) error { return s.setInlineLimit(128) }),
			NoError(func(s *settings) { s.compression = "zstd" }),
			NoError(func(s *settings) { s.compression = "lz4" }),
		)
		require.NoError(t, err)
		require.Equal(t, 128, s.inlineLimit)
		require.Equal(t, "lz4", s.compression, "later option wins")
		require.True(t, s.aliasing)
	})

	t.Run("StopsAtFirstError", func(t *testing.T) {
		s := &settings{}

		err := Apply(s,
			New(func(s *settings) error { return s.setInlineLimit(64) }),
			New(func(s *settings) error { return s.setInlineLimit(-1) }),
			NoError(func(s *settings) { s.compression = "unreached" }),
		)
		require.Error(t, err)
		require.Contains(t, err.Error(), "inline limit cannot be negative")
		require.Equal(t, 64, s.inlineLimit)
		require.Empty(t, s.compression, "options after the failure must not run")
	})

	t.Run("EmptyOptionList", func(t *testing.T) {
		s := &settings{inlineLimit: 7}

		require.NoError(t, Apply(s))
		require.Equal(t, 7, s.inlineLimit)
	})
}

func TestNoError(t *testing.T) {
	var count int
	opt := NoError(func(n *int) { *n = 42 })

	require.NoError(t, opt.apply(&count))
	require.Equal(t, 42, count)
}
