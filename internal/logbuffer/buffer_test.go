package logbuffer

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_Wraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		rb.Add(LogEntry{Level: "info", Message: msg})
	}
	var got []string
	for _, e := range rb.GetAll() {
		got = append(got, e.Message)
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
}

func TestRingBuffer_GetFiltered(t *testing.T) {
	rb := NewRingBuffer(10)
	rb.Add(LogEntry{Level: "info", Message: "1", Interface: "vtun0"})
	rb.Add(LogEntry{Level: "warn", Message: "2", Interface: "vtun1"})
	rb.Add(LogEntry{Level: "info", Message: "3", Interface: "vtun1"})
	rb.Add(LogEntry{Level: "info", Message: "4", Interface: "vtun0"})

	msgs := func(entries []LogEntry) []string {
		var out []string
		for _, e := range entries {
			out = append(out, e.Message)
		}
		return out
	}
	assert.Equal(t, []string{"1", "3", "4"}, msgs(rb.GetFiltered("info", "", 0)))
	assert.Equal(t, []string{"3", "4"}, msgs(rb.GetFiltered("info", "", 2)))
	assert.Equal(t, []string{"2", "3"}, msgs(rb.GetFiltered("", "vtun1", 0)))
	assert.Empty(t, rb.GetFiltered("error", "", 0))
}

func TestRingBuffer_ZerologWriter(t *testing.T) {
	rb := NewRingBuffer(5)
	logger := zerolog.New(rb).With().Timestamp().Logger()

	logger.Warn().Str("interface", "vtun0").Err(errors.New("boom")).Msg("failed to start daemon")

	entries := rb.GetAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "failed to start daemon", entries[0].Message)
	assert.Equal(t, "vtun0", entries[0].Interface)
	assert.Equal(t, "boom", entries[0].Error)
	assert.False(t, entries[0].Time.IsZero())

	_, err := rb.Write([]byte("plain text"))
	require.NoError(t, err)
	assert.Equal(t, "plain text", rb.GetAll()[1].Message)
}
