package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/leszamis/modsync/internal/config"
	"github.com/leszamis/modsync/internal/download"
	"github.com/leszamis/modsync/internal/progress"
)

var (
	// ErrBusy is returned when the same operation is already running
	ErrBusy = errors.New("operation already in progress")
	// ErrUnsafeName marks a file name that would escape the target folder
	ErrUnsafeName = errors.New("unsafe file name")
)

// Fetcher downloads url into target, leaving no file behind on failure
type Fetcher interface {
	File(ctx context.Context, url, target string) error
}

// Sink receives each outcome as it happens
type Sink func(Outcome)

// Option configures a Reconciler
type Option func(*Reconciler)

// WithSink delivers outcomes to fn as they are produced
func WithSink(fn Sink) Option {
	return func(r *Reconciler) { r.sink = fn }
}

// WithProgress reports the percentage after each download
func WithProgress(fn func(percent float64)) Option {
	return func(r *Reconciler) { r.progress = fn }
}

// WithPhase is called as each operation starts, before its folder is checked
func WithPhase(fn func(Op)) Option {
	return func(r *Reconciler) { r.phase = fn }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// Reconciler applies a mod set to a mods folder
type Reconciler struct {
	set      config.ModSet
	fetcher  Fetcher
	sink     Sink
	progress func(float64)
	phase    func(Op)
	log      *log.Logger
	guard    *guard
}

// New creates a reconciler for set
func New(set config.ModSet, fetcher Fetcher, opts ...Option) *Reconciler {
	r := &Reconciler{
		set:     set,
		fetcher: fetcher,
		guard:   newGuard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = log.New(io.Discard)
	}
	return r
}

// RemoveObsolete deletes every obsolete file from folder, in list order.
// Missing files are reported and skipped; failures never stop the batch.
func (r *Reconciler) RemoveObsolete(ctx context.Context, folder string) ([]Outcome, error) {
	release, ok := r.guard.TryAcquire(OpRemove)
	if !ok {
		return nil, ErrBusy
	}
	defer release()
	r.start(OpRemove)

	var outcomes []Outcome
	emit := r.collector(&outcomes)

	if !isDir(folder) {
		emit(Outcome{Kind: KindFolderNotFound, Name: folder})
		return outcomes, nil
	}

	for _, name := range r.set.Obsolete {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		if !safeName(name) {
			emit(Outcome{Kind: KindRemovalFailed, Name: name, Err: ErrUnsafeName})
			continue
		}

		path := filepath.Join(folder, name)
		err := os.Remove(path)
		switch {
		case err == nil:
			r.log.Debug("removed", "file", path)
			emit(Outcome{Kind: KindRemoved, Name: name})
		case errors.Is(err, os.ErrNotExist):
			emit(Outcome{Kind: KindSkipNotFound, Name: name})
		default:
			r.log.Warn("failed to remove", "file", path, "err", err)
			emit(Outcome{Kind: KindRemovalFailed, Name: name, Err: err})
		}
	}

	return outcomes, nil
}

// InstallNew downloads every addition into folder, in mod set order
func (r *Reconciler) InstallNew(ctx context.Context, folder string) ([]Outcome, error) {
	release, ok := r.guard.TryAcquire(OpInstall)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	return r.installNew(ctx, folder, r.tracker(len(r.set.Additions)))
}

// InstallConfigFiles downloads the extra files into their destinations under instanceDir
func (r *Reconciler) InstallConfigFiles(ctx context.Context, instanceDir string) ([]Outcome, error) {
	release, ok := r.guard.TryAcquire(OpConfigFiles)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	return r.installConfigFiles(ctx, instanceDir, r.tracker(len(r.set.ConfigFiles)))
}

// Install runs InstallNew on modsFolder, then InstallConfigFiles on instanceDir
// when the set has config files. Progress spans both, so it reaches 100 once.
func (r *Reconciler) Install(ctx context.Context, modsFolder, instanceDir string) ([]Outcome, error) {
	release, ok := r.guard.TryAcquire(OpInstall)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	tracker := r.tracker(r.set.Total())
	outcomes, err := r.installNew(ctx, modsFolder, tracker)
	if err != nil || len(r.set.ConfigFiles) == 0 {
		return outcomes, err
	}

	releaseFiles, ok := r.guard.TryAcquire(OpConfigFiles)
	if !ok {
		return outcomes, ErrBusy
	}
	defer releaseFiles()

	more, err := r.installConfigFiles(ctx, instanceDir, tracker)
	return append(outcomes, more...), err
}

func (r *Reconciler) installNew(ctx context.Context, folder string, tracker *progress.Tracker) ([]Outcome, error) {
	r.start(OpInstall)

	var outcomes []Outcome
	emit := r.collector(&outcomes)

	if !isDir(folder) {
		emit(Outcome{Kind: KindFolderNotFound, Name: folder})
		tracker.Advance(len(r.set.Additions))
		return outcomes, nil
	}

	for _, add := range r.set.Additions {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		emit(r.fetch(ctx, folder, add.Name, add.URL))
		tracker.Step()
	}

	return outcomes, nil
}

func (r *Reconciler) installConfigFiles(ctx context.Context, instanceDir string, tracker *progress.Tracker) ([]Outcome, error) {
	r.start(OpConfigFiles)

	var outcomes []Outcome
	emit := r.collector(&outcomes)

	if !isDir(instanceDir) {
		emit(Outcome{Kind: KindFolderNotFound, Name: instanceDir})
		tracker.Advance(len(r.set.ConfigFiles))
		return outcomes, nil
	}

	for _, cf := range r.set.ConfigFiles {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		dest, err := download.ValidatePath(instanceDir, filepath.Join(instanceDir, cf.Destination))
		if err != nil {
			emit(Outcome{Kind: KindDownloadFailed, Name: cf.Filename, Err: fmt.Errorf("%w: %v", ErrUnsafeName, err)})
			tracker.Step()
			continue
		}
		if err := os.MkdirAll(dest, 0755); err != nil {
			emit(Outcome{Kind: KindDownloadFailed, Name: cf.Filename, Err: fmt.Errorf("failed to create %s: %w", dest, err)})
			tracker.Step()
			continue
		}

		emit(r.fetch(ctx, dest, cf.Filename, cf.URL))
		tracker.Step()
	}

	return outcomes, nil
}

// tracker counts total downloads and forwards each new percentage to the progress option
func (r *Reconciler) tracker(total int) *progress.Tracker {
	t := progress.NewTracker(total)
	if r.progress != nil {
		t.Subscribe(r.progress)
	}
	return t
}

func (r *Reconciler) start(op Op) {
	if r.phase != nil {
		r.phase(op)
	}
}

func (r *Reconciler) fetch(ctx context.Context, folder, name, url string) Outcome {
	if !safeName(name) {
		return Outcome{Kind: KindDownloadFailed, Name: name, Err: ErrUnsafeName}
	}

	target := filepath.Join(folder, name)
	r.log.Debug("downloading", "url", url, "file", target)
	if err := r.fetcher.File(ctx, url, target); err != nil {
		r.log.Warn("download failed", "file", name, "err", err)
		return Outcome{Kind: KindDownloadFailed, Name: name, Err: err}
	}
	return Outcome{Kind: KindDownloaded, Name: name}
}

func (r *Reconciler) collector(dst *[]Outcome) func(Outcome) {
	return func(o Outcome) {
		*dst = append(*dst, o)
		if r.sink != nil {
			r.sink(o)
		}
	}
}

func safeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
