package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// Prompter asks one question and returns the raw answer.
type Prompter interface {
	Prompt(label string) (string, error)
}

// ReadlinePrompter reads answers from a terminal with line editing and
// history.
type ReadlinePrompter struct {
	rl *readline.Instance
}

// NewReadlinePrompter opens a terminal prompter. historyFile may be empty.
func NewReadlinePrompter(historyFile string) (*ReadlinePrompter, error) {
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".pdfspeak_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:     historyFile,
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &ReadlinePrompter{rl: rl}, nil
}

// Prompt shows label and reads one line.
func (p *ReadlinePrompter) Prompt(label string) (string, error) {
	p.rl.SetPrompt(label)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", errors.New("input interrupted")
	}
	return line, err
}

// Close releases the terminal.
func (p *ReadlinePrompter) Close() error {
	return p.rl.Close()
}

// LinePrompter reads answers line by line from any reader. It is the
// fallback when no terminal is attached.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a prompter that writes labels to out and reads
// answers from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// Prompt writes label and reads up to the next newline. A final line without
// a newline is still returned.
func (p *LinePrompter) Prompt(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
