package app

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	for level, want := range map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		"warn":     zerolog.WarnLevel,
		"disabled": zerolog.Disabled,
		"":         zerolog.InfoLevel,
		"loud":     zerolog.InfoLevel,
	} {
		SetLogLevel(level)
		assert.Equal(t, want, zerolog.GlobalLevel(), level)
	}
}

func TestSetupLogging_Sinks(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	var sink bytes.Buffer
	SetupLogging("warn", &sink)

	log.Info().Msg("dropped")
	log.Warn().Str("interface", "vtun0").Msg("kept")

	assert.NotContains(t, sink.String(), "dropped")
	assert.Contains(t, sink.String(), `"interface":"vtun0"`)
	assert.Contains(t, sink.String(), `"message":"kept"`)
}
