package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the operator a yes/no question.
type Prompter interface {
	Confirm(prompt string) (bool, error)
}

// IOPrompter reads confirmations from an input stream.
type IOPrompter struct {
	In  io.Reader
	Out io.Writer
}

// Confirm writes the prompt and interprets a y/yes reply as assent.
func (p IOPrompter) Confirm(prompt string) (bool, error) {
	if _, err := fmt.Fprintf(p.Out, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
