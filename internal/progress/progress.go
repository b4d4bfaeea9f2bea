package progress

import (
	"sync"

	bubbleprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/muesli/termenv"
)

// Percent converts done/total into a value in [0, 100]. A zero total reports 0.
func Percent(done, total int) float64 {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return float64(done) / float64(total) * 100
}

// Tracker counts processed items and notifies subscribers after each step
type Tracker struct {
	mu    sync.Mutex
	total int
	done  int
	subs  []func(percent float64)
}

// NewTracker creates a tracker for total items
func NewTracker(total int) *Tracker {
	return &Tracker{total: total}
}

// Subscribe registers fn to receive every new percentage
func (t *Tracker) Subscribe(fn func(percent float64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
}

// Step marks one more item processed and returns the new percentage
func (t *Tracker) Step() float64 {
	return t.Advance(1)
}

// Advance marks n items processed at once, notifying subscribers a single time.
// The count never passes total.
func (t *Tracker) Advance(n int) float64 {
	t.mu.Lock()
	if n < 0 {
		n = 0
	}
	t.done = min(t.done+n, t.total)
	p := Percent(t.done, t.total)
	subs := append([]func(float64){}, t.subs...)
	t.mu.Unlock()

	if n == 0 {
		return p
	}
	for _, fn := range subs {
		if fn != nil {
			fn(p)
		}
	}
	return p
}

// Bar renders a percentage as a single-line progress bar
type Bar struct {
	model bubbleprogress.Model
}

// NewBar creates a bar of the given width. Without color it renders plain ASCII shades.
func NewBar(width int, color bool) *Bar {
	opts := []bubbleprogress.Option{bubbleprogress.WithWidth(width)}
	if color {
		opts = append(opts, bubbleprogress.WithDefaultGradient())
	} else {
		opts = append(opts, bubbleprogress.WithColorProfile(termenv.Ascii))
	}
	return &Bar{model: bubbleprogress.New(opts...)}
}

// Render draws the bar for a percentage in [0, 100]
func (b *Bar) Render(percent float64) string {
	return b.model.ViewAs(percent / 100)
}
