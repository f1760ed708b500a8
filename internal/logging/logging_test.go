package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	quiet := NewWithWriter(&buf, false)
	quiet.Debug("hidden")
	quiet.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "WARN")

	buf.Reset()
	verbose := NewWithWriter(&buf, true)
	verbose.Debug("transfer")
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "curly")
}
