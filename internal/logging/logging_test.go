package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env, level string
		debug      bool
	}{
		{env: "dev", debug: true},
		{env: "prod", debug: false},
		{env: "prod", level: "debug", debug: true},
		{env: "dev", level: "warn", debug: false},
		{env: "dev", level: "bogus", debug: true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			log, err := New(tt.env, tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.debug, log.Core().Enabled(zapcore.DebugLevel))
		})
	}
}
