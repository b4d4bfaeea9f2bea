package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/leszamis/modsync/internal/reconcile"
)

// Info describes the run a report is built for
type Info struct {
	Instance string
	Folder   string
	When     time.Time
}

// Counts tallies outcomes by result
type Counts struct {
	Removed    int
	Skipped    int
	Downloaded int
	Failed     int
}

// Total returns the number of outcomes counted
func (c Counts) Total() int {
	return c.Removed + c.Skipped + c.Downloaded + c.Failed
}

// Count tallies outcomes
func Count(outcomes []reconcile.Outcome) Counts {
	var c Counts
	for _, o := range outcomes {
		switch o.Kind {
		case reconcile.KindRemoved:
			c.Removed++
		case reconcile.KindSkipNotFound:
			c.Skipped++
		case reconcile.KindDownloaded:
			c.Downloaded++
		default:
			if o.Kind.Failed() {
				c.Failed++
			}
		}
	}
	return c
}

// Build creates a formatted summary of a sync run
func Build(outcomes []reconcile.Outcome, info Info) string {
	var b strings.Builder
	counts := Count(outcomes)

	b.WriteString("Mod Sync Report\n\n")
	if info.Instance != "" {
		b.WriteString(fmt.Sprintf("Instance: %s\n", info.Instance))
	}
	if info.Folder != "" {
		b.WriteString(fmt.Sprintf("Folder: %s\n", info.Folder))
	}
	when := info.When
	if when.IsZero() {
		when = time.Now()
	}
	b.WriteString(fmt.Sprintf("Completed: %s\n", when.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("Total: %d files (%d removed, %d skipped, %d downloaded, %d failed)\n",
		counts.Total(), counts.Removed, counts.Skipped, counts.Downloaded, counts.Failed))

	if counts.Total() == 0 {
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\nDetailed file changes:\n")
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\n\n")

	section(&b, "Installed", outcomes, reconcile.KindDownloaded, func(o reconcile.Outcome) string {
		return "  + " + o.Name
	})
	section(&b, "Removed", outcomes, reconcile.KindRemoved, func(o reconcile.Outcome) string {
		return "  - " + o.Name
	})

	var failed []reconcile.Outcome
	for _, o := range outcomes {
		if o.Kind.Failed() {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		b.WriteString(fmt.Sprintf("Failed (%d):\n", len(failed)))
		for _, o := range failed {
			if o.Err != nil {
				b.WriteString(fmt.Sprintf("  ! %s: %v\n", o.Name, o.Err))
			} else {
				b.WriteString(fmt.Sprintf("  ! %s: %s\n", o.Name, o.Kind))
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func section(b *strings.Builder, title string, outcomes []reconcile.Outcome, kind reconcile.Kind, line func(reconcile.Outcome) string) {
	var lines []string
	for _, o := range outcomes {
		if o.Kind == kind {
			lines = append(lines, line(o))
		}
	}
	if len(lines) == 0 {
		return
	}

	b.WriteString(fmt.Sprintf("%s (%d files):\n", title, len(lines)))
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	b.WriteString("\n")
}
