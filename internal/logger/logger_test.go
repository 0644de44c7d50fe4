package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetLogger restores the package defaults after a test.
func resetLogger(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		SetLevel("INFO")
		SetFormat(FormatText)
		SetOutput(os.Stdout)
	})
}

func TestLevelFiltering(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("WARN")

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestTextFormat(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("INFO")
	SetFormat(FormatText)

	Info("hello %s", "world")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "hello world")
}

func TestJSONFormat(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("INFO")
	SetFormat(FormatJSON)

	Info("hello %s", "world")

	var record map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "hello world", record["msg"])
	assert.NotEmpty(t, record["time"])
}

func TestUnknownLevelAndFormatIgnored(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("INFO")
	SetLevel("VERBOSE")
	SetFormat("xml")

	Info("still info")
	assert.Contains(t, buf.String(), "[INFO]")
}
