package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// stdinConsole is the blocking line-input capability backing the interactive
// decision loop
type stdinConsole struct {
	reader *bufio.Reader
}

func newStdinConsole() *stdinConsole {
	return &stdinConsole{reader: bufio.NewReader(os.Stdin)}
}

// Prompt displays a label and returns one line of operator input
func (c *stdinConsole) Prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading console input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
