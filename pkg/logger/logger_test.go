package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, mode := range []string{"release", "debug", ""} {
		t.Run("mode="+mode, func(t *testing.T) {
			log, err := New(mode)
			require.NoError(t, err)
			require.NotNil(t, log)
			log.Info("logger ready")
		})
	}
}

func TestNewSugared(t *testing.T) {
	log, err := NewSugared("release")
	require.NoError(t, err)
	assert.NotNil(t, log.Desugar())
}
