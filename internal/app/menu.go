package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/leszamis/modsync/internal/instance"
	"github.com/leszamis/modsync/internal/prompt"
	"github.com/leszamis/modsync/internal/reconcile"
)

type menuAction struct {
	label string
	run   func(ctx context.Context) error
}

// Menu runs the interactive loop until the user quits or ctx is cancelled.
// Actions run one at a time on the calling goroutine.
func (s *Session) Menu(ctx context.Context) error {
	actions := []menuAction{
		{"Choose instance", func(context.Context) error { return s.ChooseInstance() }},
		{"Pick a mods folder", func(context.Context) error { return s.PickFolder() }},
		{"Remove old mods", s.Remove},
		{"Install new mods", s.Install},
		{"Sync (remove, then install)", s.Sync},
	}
	labels := make([]string, 0, len(actions)+1)
	for _, a := range actions {
		labels = append(labels, a.label)
	}
	labels = append(labels, "Quit")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		title := "modsync"
		if inst, ok := s.Current(); ok {
			title = fmt.Sprintf("modsync - %s", inst.ModsPath)
		}

		choice, ok := s.prompter.Choose(title, labels)
		if !ok || choice == len(actions) {
			return nil
		}

		err := actions[choice].run(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoInstance):
			s.console.Failure("Choose an instance first.")
		case errors.Is(err, reconcile.ErrBusy):
			s.console.Failure("That action is already running.")
		case errors.Is(err, context.Canceled):
			s.console.Failure("Cancelled.")
			return err
		default:
			s.console.Failure("%v", err)
		}

		if choice >= 2 {
			s.console.Neutral("%s", s.Finish())
		}
	}
}

// ChooseInstance asks the user to pick one of the discovered instances
func (s *Session) ChooseInstance() error {
	instances := s.Instances()
	if len(instances) == 0 {
		s.console.Failure("No instance found under %s", s.cfg.Instances.Root)
		return nil
	}

	idx, ok := s.prompter.Choose("Choose an instance", instance.Names(instances))
	if !ok {
		return nil
	}
	return s.Select(instances[idx].Name)
}

// PickFolder asks for a mods folder and targets it for this run
func (s *Session) PickFolder() error {
	defaultPath := ""
	if inst, ok := s.Current(); ok {
		defaultPath = inst.ModsPath
	}

	path, err := s.prompter.SelectFolder("Select the mods folder", defaultPath)
	if errors.Is(err, prompt.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	s.UseFolder(path)
	return nil
}
