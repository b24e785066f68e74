package logger

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	Init(true)
	SetOutput(&buf)
	t.Cleanup(func() { Init(false) })

	Info("info message")
	Warnf("warn %d", 1)
	Errorf("error %s", "boom")
	Debug("debug message")

	out := buf.String()
	assert.Contains(t, out, "INFO: ")
	assert.Contains(t, out, "info message")
	assert.Contains(t, out, "WARN: ")
	assert.Contains(t, out, "warn 1")
	assert.Contains(t, out, "ERROR: ")
	assert.Contains(t, out, "error boom")
	assert.Contains(t, out, "debug message")
}

func TestDebugDisabled(t *testing.T) {
	Init(false)
	assert.Equal(t, io.Discard, DebugLogger.Writer())
	assert.Equal(t, os.Stdout, InfoLogger.Writer())
}
