package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/leszamis/modsync/internal/config"
	"github.com/leszamis/modsync/internal/console"
	"github.com/leszamis/modsync/internal/instance"
	"github.com/leszamis/modsync/internal/reconcile"
	"github.com/leszamis/modsync/internal/report"
	"github.com/leszamis/modsync/internal/selection"
)

var (
	// ErrNoInstance is returned by actions that need a target folder when none is chosen
	ErrNoInstance = errors.New("no instance selected")
	// ErrUnknownInstance is returned when selecting a name that was not discovered
	ErrUnknownInstance = errors.New("instance not found")
)

// Prompter is the part of the terminal prompter a session needs
type Prompter interface {
	Confirm(question string) bool
	Choose(title string, options []string) (int, bool)
	SelectFolder(title, defaultPath string) (string, error)
}

// Options holds everything a session is built from
type Options struct {
	Config   *config.Config
	ModSet   config.ModSet
	Console  *console.Console
	Prompter Prompter
	Fetcher  reconcile.Fetcher
	Logger   *log.Logger
	Now      func() time.Time
}

// Session holds the state of one modsync run: discovered instances, the
// current selection and the outcomes collected so far.
type Session struct {
	cfg        *config.Config
	console    *console.Console
	prompter   Prompter
	store      *selection.Store
	reconciler *reconcile.Reconciler
	log        *log.Logger
	now        func() time.Time

	mu        sync.Mutex
	instances []instance.Instance
	current   *instance.Instance
	outcomes  []reconcile.Outcome
}

// New creates a session
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		cfg:      opts.Config,
		console:  opts.Console,
		prompter: opts.Prompter,
		store:    selection.NewStore(opts.Config.SelectionFile),
		log:      logger,
		now:      now,
	}
	s.reconciler = reconcile.New(opts.ModSet, opts.Fetcher,
		reconcile.WithSink(s.console.Outcome),
		reconcile.WithProgress(s.console.Progress),
		reconcile.WithPhase(s.phase),
		reconcile.WithLogger(logger),
	)
	return s
}

// Discover finds the instances this run can target
func (s *Session) Discover() []instance.Instance {
	var found []instance.Instance
	if s.cfg.Instances.FixedModsPath != "" {
		found = []instance.Instance{instance.Fixed(s.cfg.Instances.FixedModsPath)}
	} else {
		found = instance.Locate(s.cfg.Instances.Root, s.cfg.Instances.Prefix)
	}
	s.log.Debug("instances discovered", "count", len(found), "root", s.cfg.Instances.Root)

	s.mu.Lock()
	s.instances = found
	s.mu.Unlock()
	return found
}

// Instances returns the last discovered instances
func (s *Session) Instances() []instance.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]instance.Instance(nil), s.instances...)
}

// Restore selects the saved instance, or the fixed folder when one is configured
func (s *Session) Restore() {
	instances := s.Instances()

	if s.cfg.Instances.FixedModsPath != "" && len(instances) == 1 {
		s.setCurrent(instances[0])
		return
	}

	name, ok, err := s.store.Load(instance.Names(instances))
	if err != nil {
		s.console.Failure("Error loading the saved instance: %v", err)
		return
	}
	if !ok {
		return
	}

	inst, _ := instance.Find(instances, name)
	s.setCurrent(inst)
	s.console.Neutral("Instance restored automatically: %s", inst.ModsPath)
}

// Saved returns the persisted instance name if it is still discovered
func (s *Session) Saved() (string, bool) {
	name, ok, err := s.store.Load(instance.Names(s.Instances()))
	if err != nil {
		return "", false
	}
	return name, ok
}

// Select makes name the current instance and persists it.
// A failure to persist is reported on the console and does not fail the selection.
func (s *Session) Select(name string) error {
	inst, ok := instance.Find(s.Instances(), name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInstance, name)
	}

	s.setCurrent(inst)
	s.console.Neutral("Selected mods folder: %s", inst.ModsPath)

	if err := s.store.Save(name); err != nil {
		s.console.Failure("Error saving the instance: %v", err)
	}
	return nil
}

// UseFolder targets a mods folder picked by hand for this run only
func (s *Session) UseFolder(modsPath string) {
	inst := instance.Fixed(modsPath)
	s.setCurrent(inst)
	s.console.Neutral("Selected mods folder: %s", inst.ModsPath)
}

// Current returns the selected instance
func (s *Session) Current() (instance.Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return instance.Instance{}, false
	}
	return *s.current, true
}

// Remove deletes the obsolete mods from the current instance
func (s *Session) Remove(ctx context.Context) error {
	inst, ok := s.Current()
	if !ok {
		return ErrNoInstance
	}

	outcomes, err := s.reconciler.RemoveObsolete(ctx, inst.ModsPath)
	s.record(outcomes)
	return err
}

// Install downloads the new mods, then the config files, into the current instance
func (s *Session) Install(ctx context.Context) error {
	inst, ok := s.Current()
	if !ok {
		return ErrNoInstance
	}

	outcomes, err := s.reconciler.Install(ctx, inst.ModsPath, inst.Path)
	s.record(outcomes)
	return err
}

// Sync runs Remove then Install
func (s *Session) Sync(ctx context.Context) error {
	if err := s.Remove(ctx); err != nil {
		return err
	}
	return s.Install(ctx)
}

// Finish plays the cue for everything recorded since the last Finish and returns its report
func (s *Session) Finish() string {
	s.mu.Lock()
	outcomes := s.outcomes
	s.outcomes = nil
	current := s.current
	s.mu.Unlock()

	info := report.Info{When: s.now()}
	if current != nil {
		info.Instance = current.Name
		info.Folder = current.ModsPath
	}

	if len(outcomes) > 0 {
		s.console.Chime(report.Count(outcomes).Failed == 0)
	}
	return report.Build(outcomes, info)
}

// Outcomes returns what was recorded since the last Finish
func (s *Session) Outcomes() []reconcile.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reconcile.Outcome(nil), s.outcomes...)
}

func (s *Session) phase(op reconcile.Op) {
	switch op {
	case reconcile.OpRemove:
		s.console.Section("Removing old mods")
	case reconcile.OpInstall:
		s.console.Section("Downloading new mods")
	case reconcile.OpConfigFiles:
		s.console.Section("Installing config files")
	}
}

func (s *Session) setCurrent(inst instance.Instance) {
	s.mu.Lock()
	s.current = &inst
	s.mu.Unlock()
}

func (s *Session) record(outcomes []reconcile.Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, outcomes...)
	s.mu.Unlock()
}
