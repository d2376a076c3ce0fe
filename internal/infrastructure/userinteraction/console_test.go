package userinteraction

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	c := NewConsoleWith(strings.NewReader("  what is 2+2?  \n"), &out)

	q, err := c.AskQuestion("Question:")
	require.NoError(t, err)
	assert.Equal(t, "what is 2+2?", q)

	c.ShowWaiting("asking")
	c.ShowAnswer("4", 1234*time.Millisecond)
	c.ShowError("request failed", errors.New(strings.Repeat("x", 400)))

	got := out.String()
	assert.Contains(t, got, "Question:")
	assert.Contains(t, got, "Answer (1.2s)\n4\n")
	assert.Contains(t, got, "request failed: "+strings.Repeat("x", 300)+"...")
}

func TestConsole_AskQuestion_EOF(t *testing.T) {
	c := NewConsoleWith(strings.NewReader("no newline"), &bytes.Buffer{})
	q, err := c.AskQuestion("?")
	require.NoError(t, err)
	assert.Equal(t, "no newline", q)

	_, err = NewConsoleWith(strings.NewReader(""), &bytes.Buffer{}).AskQuestion("?")
	assert.Error(t, err)
}
