package remediation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Console is an actor for a human at a terminal. It prints a summary of each
// instruction file and blocks until the operator presses ENTER.
type Console struct {
	in  io.Reader
	out io.Writer
}

// NewConsole creates a console actor reading from in and writing to out.
// Nil arguments default to stdin and stdout.
func NewConsole(in io.Reader, out io.Writer) *Console {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Console{in: in, out: out}
}

// Await implements Actor. The blocking read runs in its own goroutine so a
// cancelled run does not hang on an absent operator.
func (c *Console) Await(ctx context.Context, g Guidance) error {
	fmt.Fprintf(c.out, "\nGate %s failed (attempt %d) on %s\n", g.Gate, g.Attempt, g.Target)

	for _, path := range g.Paths {
		fmt.Fprintf(c.out, "\nInstruction: %s\n", path)
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(c.out, "  (could not read instruction file: %v)\n", err)
			continue
		}
		for _, line := range Summarize(string(content)) {
			fmt.Fprintf(c.out, "%s\n", line)
		}
	}

	fmt.Fprintf(c.out, "\nACTION REQUIRED:\n")
	fmt.Fprintf(c.out, "1. Review the instruction file(s) above\n")
	fmt.Fprintf(c.out, "2. Apply the fixes and commit them\n")
	fmt.Fprintf(c.out, "3. Press ENTER to re-validate\n")

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(c.in).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Summarize extracts the headed sections and their top-level bullets from an
// instruction document. The content itself is not parsed semantically; the
// summary only orients the operator.
func Summarize(content string) []string {
	var summary []string
	inSection := false
	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "### "):
			summary = append(summary, line)
			inSection = true
		case inSection && strings.HasPrefix(strings.TrimSpace(line), "-"):
			summary = append(summary, "  "+line)
		case strings.TrimSpace(line) == "":
			inSection = false
		}
	}
	return summary
}
