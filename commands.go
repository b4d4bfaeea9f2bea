package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/leszamis/modsync/internal/app"
	"github.com/leszamis/modsync/internal/selfupdate"
	"github.com/leszamis/modsync/internal/version"
)

func (sh *shell) instancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instances",
		Short: "List discovered instances",
		Long:  `List the instances found under instances.root. The saved selection is marked with *.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instances := sh.session.Instances()
			if len(instances) == 0 {
				sh.printf(cmd, "No instance found under %s\n", sh.cfg.Instances.Root)
				return nil
			}

			saved, _ := sh.session.Saved()
			for _, inst := range instances {
				mark := " "
				if inst.Name == saved {
					mark = "*"
				}
				sh.printf(cmd, "%s %s\t%s\n", mark, inst.Name, inst.ModsPath)
			}
			return nil
		},
	}
}

func (sh *shell) selectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <name>",
		Short: "Remember an instance for later runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return sh.session.Select(args[0])
		},
	}
}

// actionCmd builds remove, install and sync, which share the --instance flag and the final report
func (sh *shell) actionCmd(use, short string, action func(*app.Session, context.Context) error) *cobra.Command {
	var instanceName string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instanceName != "" {
				if err := sh.session.Select(instanceName); err != nil {
					return err
				}
			}
			if _, ok := sh.session.Current(); !ok {
				return fmt.Errorf("%w: pass --instance or run 'modsync select <name>' first", app.ErrNoInstance)
			}

			err := action(sh.session, cmd.Context())
			sh.printf(cmd, "\n%s", sh.session.Finish())
			return err
		},
	}
	cmd.Flags().StringVarP(&instanceName, "instance", "i", "", "Instance to use (saved for later runs)")
	return cmd
}

func (sh *shell) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Check for a new modsync version and install it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sh.checkForUpdate(cmd.Context(), true)
			return nil
		},
	}
}

func (sh *shell) applyUpdateCmd() *cobra.Command {
	opts := selfupdate.ApplyOptions{}

	cmd := &cobra.Command{
		Use:    selfupdate.ApplyCommand,
		Short:  "Replace the modsync executable (run by the update helper)",
		Hidden: true,
		Args:   cobra.NoArgs,
		// The helper must not load settings or touch the selection file.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := sh.stderr
			if logFile, err := selfupdate.OpenLog(opts.Target); err == nil {
				defer logFile.Close()
				out = io.MultiWriter(sh.stderr, logFile)
			}
			sh.logger = log.NewWithOptions(out, log.Options{
				Prefix:          "modsync-update",
				ReportTimestamp: true,
				Level:           logLevel(sh.verbose, sh.quiet),
			})

			opts.Logger = sh.logger
			if err := selfupdate.ApplyUpdate(cmd.Context(), opts); err != nil {
				sh.logger.Error("update failed", "err", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "", "Executable to replace")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "Downloaded replacement")
	cmd.Flags().StringVar(&opts.Marker, "marker", "", "Readiness marker written by the exiting process")
	cmd.Flags().IntVar(&opts.ParentPID, "pid", 0, "Process id of the exiting modsync")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "How long to wait for the marker and the file lock")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("payload")
	_ = cmd.MarkFlagRequired("marker")

	return cmd
}

func (sh *shell) pickFolderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pick-folder",
		Short: "Choose a mods folder by hand, then open the menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := sh.session.PickFolder(); err != nil {
				return err
			}
			if _, ok := sh.session.Current(); !ok {
				return nil
			}
			return sh.session.Menu(cmd.Context())
		},
	}
}

func (sh *shell) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the modsync version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			sh.printf(cmd, "modsync %s\n", version.Version)
		},
	}
}
