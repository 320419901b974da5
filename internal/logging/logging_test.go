package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env         string
		debugActive bool
	}{
		{"production", false},
		{"prod", false},
		{"development", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run("env "+tt.env, func(t *testing.T) {
			log, err := New(tt.env)
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.Equal(t, tt.debugActive, log.Desugar().Core().Enabled(zapcore.DebugLevel))
		})
	}
}
