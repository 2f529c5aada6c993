package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.WarnLevel,
		"debug":   zapcore.DebugLevel,
		" INFO ":  zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestNewHonorsLevel(t *testing.T) {
	log, err := New("error")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.WarnLevel))
	require.True(t, log.Core().Enabled(zapcore.ErrorLevel))

	_, err = New("nope")
	require.Error(t, err)
}
