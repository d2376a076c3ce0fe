// Package userinteraction is the terminal side of the ask command.
package userinteraction

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

type Console struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewConsole() *Console {
	return NewConsoleWith(os.Stdin, color.Output)
}

func NewConsoleWith(in io.Reader, out io.Writer) *Console {
	return &Console{reader: bufio.NewReader(in), out: out}
}

// AskQuestion prompts and reads one line. EOF after some text still counts
// as an answer, so piped input without a trailing newline works.
func (c *Console) AskQuestion(prompt string) (string, error) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(c.out, "\n%s\n> ", prompt)

	answer, err := c.reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if err != nil && answer == "" {
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	return answer, nil
}

func (c *Console) ShowWaiting(what string) {
	dim := color.New(color.Faint)
	dim.Fprintf(c.out, "⏳ %s\n", what)
}

func (c *Console) ShowAnswer(answer string, took time.Duration) {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(c.out, "\n✓ Answer (%s)\n", took.Round(100*time.Millisecond))
	fmt.Fprintln(c.out, answer)
}

func (c *Console) ShowError(msg string, err error) {
	red := color.New(color.FgRed)
	red.Fprint(c.out, "❌ ")
	fmt.Fprintf(c.out, "%s: ", msg)

	dim := color.New(color.Faint)
	dim.Fprintln(c.out, truncate(err.Error(), 300))
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
