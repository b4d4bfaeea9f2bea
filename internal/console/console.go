package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leszamis/modsync/internal/progress"
	"github.com/leszamis/modsync/internal/reconcile"
)

// Tag selects how a line is rendered
type Tag int

const (
	TagNeutral Tag = iota
	TagSuccess
	TagFailure
)

// Line is one entry of the console history
type Line struct {
	Tag  Tag
	Text string
	// Event is the outcome form ("removed:old.jar") for reconciliation lines, empty otherwise.
	Event string
}

// Cue plays an audible signal at the end of a batch
type Cue interface {
	Success()
	Failure()
}

// Options configures a Console
type Options struct {
	Color bool
	// Quiet hides neutral lines and progress; they are still recorded.
	Quiet bool
	Cue   Cue
}

// Console writes tagged lines to a writer and keeps their history
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	cue   Cue
	bar   *progress.Bar

	neutral lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	section lipgloss.Style

	lines []Line
}

// New creates a console writing to out
func New(out io.Writer, opts Options) *Console {
	r := lipgloss.NewRenderer(out)
	if !opts.Color {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Console{
		out:     out,
		quiet:   opts.Quiet,
		cue:     opts.Cue,
		bar:     progress.NewBar(40, opts.Color),
		neutral: r.NewStyle(),
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
		failure: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		section: r.NewStyle().Bold(true).Underline(true),
	}
}

// Neutral writes an informational line
func (c *Console) Neutral(format string, args ...any) {
	c.add(Line{Tag: TagNeutral, Text: fmt.Sprintf(format, args...)})
}

// Success writes a success line
func (c *Console) Success(format string, args ...any) {
	c.add(Line{Tag: TagSuccess, Text: fmt.Sprintf(format, args...)})
}

// Failure writes a failure line
func (c *Console) Failure(format string, args ...any) {
	c.add(Line{Tag: TagFailure, Text: fmt.Sprintf(format, args...)})
}

// Section writes a heading preceded by a blank line
func (c *Console) Section(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = append(c.lines, Line{Tag: TagNeutral, Text: "[" + title + "]"})
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.section.Render("["+title+"]"))
}

// Outcome writes the line for a reconciliation result, styled by its kind
func (c *Console) Outcome(o reconcile.Outcome) {
	line := Line{Event: o.String()}

	switch o.Kind {
	case reconcile.KindRemoved:
		line.Tag, line.Text = TagSuccess, "Removed: "+o.Name
	case reconcile.KindSkipNotFound:
		line.Tag, line.Text = TagNeutral, "(skipped) "+o.Name+" not found"
	case reconcile.KindRemovalFailed:
		line.Tag, line.Text = TagFailure, fmt.Sprintf("Could not remove %s: %v", o.Name, o.Err)
	case reconcile.KindDownloaded:
		line.Tag, line.Text = TagSuccess, "Installed: "+o.Name
	case reconcile.KindDownloadFailed:
		line.Tag, line.Text = TagFailure, fmt.Sprintf("Error downloading %s: %v", o.Name, o.Err)
	case reconcile.KindFolderNotFound:
		line.Tag, line.Text = TagFailure, "Folder not found: "+o.Name
	default:
		line.Tag, line.Text = TagNeutral, o.String()
	}

	c.add(line)
}

// Progress draws the progress bar for a percentage in [0, 100]
func (c *Console) Progress(percent float64) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.bar.Render(percent))
}

// Chime plays the success or failure cue, if one is configured
func (c *Console) Chime(ok bool) {
	if c.cue == nil {
		return
	}
	if ok {
		c.cue.Success()
	} else {
		c.cue.Failure()
	}
}

// Lines returns a copy of the history in write order
func (c *Console) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Line(nil), c.lines...)
}

// Events returns the outcome events in write order
func (c *Console) Events() []string {
	var events []string
	for _, l := range c.Lines() {
		if l.Event != "" {
			events = append(events, l.Event)
		}
	}
	return events
}

func (c *Console) add(line Line) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = append(c.lines, line)
	if c.quiet && line.Tag == TagNeutral {
		return
	}

	style := c.neutral
	switch line.Tag {
	case TagSuccess:
		style = c.success
	case TagFailure:
		style = c.failure
	}
	fmt.Fprintln(c.out, style.Render(line.Text))
}
