package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrCancelled is returned when the user backs out of a choice
var ErrCancelled = errors.New("cancelled")

// Config holds configuration for prompting
type Config struct {
	// NonInteractive answers every confirmation with yes and never reads input.
	NonInteractive bool
	In             io.Reader
	Out            io.Writer
}

// Prompter asks questions on a line-based terminal
type Prompter struct {
	nonInteractive bool
	in             *bufio.Reader
	out            io.Writer
}

// New creates a prompter; nil In/Out default to stdin/stdout
func New(cfg Config) *Prompter {
	in, out := cfg.In, cfg.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{
		nonInteractive: cfg.NonInteractive,
		in:             bufio.NewReader(in),
		out:            out,
	}
}

// NonInteractive reports whether input is never read
func (p *Prompter) NonInteractive() bool {
	return p.nonInteractive
}

// Confirm asks the user to confirm an action
func (p *Prompter) Confirm(question string) bool {
	if p.nonInteractive {
		return true
	}

	fmt.Fprintf(p.out, "%s (y/n): ", question)
	response, err := p.in.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// ReadLine prints label and returns the trimmed answer
func (p *Prompter) ReadLine(label string) (string, error) {
	if p.nonInteractive {
		return "", ErrCancelled
	}

	fmt.Fprint(p.out, label)
	response, err := p.in.ReadString('\n')
	if err != nil && response == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// Choose shows a numbered menu and returns the zero-based index of the pick.
// Entering 0 or closing input returns false.
func (p *Prompter) Choose(title string, options []string) (int, bool) {
	if p.nonInteractive || len(options) == 0 {
		return 0, false
	}

	fmt.Fprintf(p.out, "\n%s\n\n", title)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, opt)
	}
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "Enter your choice (1-%d, 0 to go back): ", len(options))

	for {
		response, err := p.in.ReadString('\n')
		response = strings.TrimSpace(response)
		if err != nil && response == "" {
			fmt.Fprintln(p.out)
			return 0, false
		}

		if response == "0" {
			return 0, false
		}
		if choice, convErr := strconv.Atoi(response); convErr == nil && choice >= 1 && choice <= len(options) {
			return choice - 1, true
		}

		if err != nil {
			return 0, false
		}
		fmt.Fprintf(p.out, "Invalid choice. Please enter 0-%d: ", len(options))
	}
}

// SelectFolder asks for a folder, using the system dialog where one exists.
// In non-interactive mode defaultPath is returned unchanged.
func (p *Prompter) SelectFolder(title, defaultPath string) (string, error) {
	if p.nonInteractive {
		return defaultPath, nil
	}

	path, err := selectFolder(p, title)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrCancelled
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a folder", path)
	}
	return path, nil
}
