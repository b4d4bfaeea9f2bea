package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/leszamis/modsync/internal/app"
	"github.com/leszamis/modsync/internal/audio"
	"github.com/leszamis/modsync/internal/config"
	"github.com/leszamis/modsync/internal/console"
	"github.com/leszamis/modsync/internal/download"
	"github.com/leszamis/modsync/internal/prompt"
	"github.com/leszamis/modsync/internal/selfupdate"
	"github.com/leszamis/modsync/internal/version"
)

// shell holds the flags and the services built from them for one invocation
type shell struct {
	configFile string
	modSetFile string
	verbose    bool
	quiet      bool
	assumeYes  bool
	noUpdate   bool

	stderr   io.Writer
	logger   *log.Logger
	cfg      *config.Config
	console  *console.Console
	prompter *prompt.Prompter
	fetcher  *download.Client
	session  *app.Session

	// exit ends the process after a successful update handoff
	exit func(int)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stderr, os.Exit)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stderr io.Writer, exit func(int)) *cobra.Command {
	sh := &shell{stderr: stderr, exit: exit}

	rootCmd := &cobra.Command{
		Use:     "modsync",
		Version: version.Version,
		Short:   "Keep a Minecraft mods folder in sync with the group's mod list",
		Long: `modsync removes obsolete mod files from a Minecraft instance and downloads
their replacements.

Instances are discovered under instances.root (folders starting with
instances.prefix that contain a mods folder). The last chosen instance is
remembered between runs.

Settings are read from modsync.yaml next to the executable, or --config.
Run without arguments to start the interactive menu.`,
		SilenceUsage:      true,
		PersistentPreRunE: sh.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !sh.noUpdate {
				sh.checkForUpdate(cmd.Context(), false)
			}
			if sh.prompter.NonInteractive() {
				sh.console.Neutral("The menu needs input; with --yes run a command such as 'modsync sync' instead.")
				return nil
			}
			return sh.session.Menu(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&sh.configFile, "config", "", "Settings file (default: modsync.yaml next to the executable)")
	flags.StringVar(&sh.modSetFile, "modset", "", "Mod set file overriding modset.file and the built-in list")
	flags.BoolVarP(&sh.verbose, "verbose", "v", false, "Show detailed diagnostic output")
	flags.BoolVarP(&sh.quiet, "quiet", "q", false, "Only show failures")
	flags.BoolVarP(&sh.assumeYes, "yes", "y", false, "Non-interactive: answer yes to every confirmation")
	flags.BoolVar(&sh.noUpdate, "no-update", false, "Skip the startup update check")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(
		sh.instancesCmd(),
		sh.selectCmd(),
		sh.actionCmd("remove", "Remove obsolete mods from the instance", (*app.Session).Remove),
		sh.actionCmd("install", "Download new mods and config files into the instance", (*app.Session).Install),
		sh.actionCmd("sync", "Remove obsolete mods, then install new ones", (*app.Session).Sync),
		sh.updateCmd(),
		sh.applyUpdateCmd(),
		sh.pickFolderCmd(),
		sh.versionCmd(),
	)

	return rootCmd
}

func newLogger(w io.Writer, verbose, quiet bool) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix: "modsync",
		Level:  logLevel(verbose, quiet),
	})
}

func logLevel(verbose, quiet bool) log.Level {
	switch {
	case verbose:
		return log.DebugLevel
	case quiet:
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// setup loads configuration and builds the session shared by every command
func (sh *shell) setup(cmd *cobra.Command, _ []string) error {
	sh.logger = newLogger(sh.stderr, sh.verbose, sh.quiet)

	cfg, used, err := config.Load(config.LoadOptions{ConfigFile: sh.configFile})
	if err != nil {
		return err
	}
	if used != "" {
		sh.logger.Debug("settings loaded", "file", used)
	}
	if sh.modSetFile != "" {
		cfg.ModSetFile = sh.modSetFile
	}
	sh.cfg = cfg

	selfupdate.CleanupOld(cfg.Update.HelperName)

	set, err := config.LoadModSet(cfg.ModSetFile)
	if err != nil {
		return err
	}
	sh.logger.Debug("mod set loaded", "obsolete", len(set.Obsolete), "additions", len(set.Additions), "config_files", len(set.ConfigFiles))

	if cfg.Network.InsecureSkipVerify {
		sh.logger.Warn("TLS certificate verification is disabled (network.insecure_skip_verify)")
	}

	out := cmd.OutOrStdout()
	sh.console = console.New(out, console.Options{
		Color: cfg.UI.Color,
		Quiet: sh.quiet,
		Cue:   audio.NewPlayer(cfg.UI.Sounds && !sh.quiet, sh.logger),
	})
	sh.prompter = prompt.New(prompt.Config{
		NonInteractive: sh.assumeYes,
		In:             cmd.InOrStdin(),
		Out:            out,
	})
	sh.fetcher = download.NewClient(download.Config{
		InsecureSkipVerify: cfg.Network.InsecureSkipVerify,
		Timeout:            cfg.Network.DownloadTimeout,
		UserAgent:          version.UserAgent(),
	})

	sh.session = app.New(app.Options{
		Config:   cfg,
		ModSet:   set,
		Console:  sh.console,
		Prompter: sh.prompter,
		Fetcher:  sh.fetcher,
		Logger:   sh.logger,
	})
	sh.session.Discover()
	sh.session.Restore()

	return nil
}

// checkForUpdate runs the self-update flow. Failures are logged, never returned.
func (sh *shell) checkForUpdate(ctx context.Context, explicit bool) {
	if version.IsDev() {
		sh.logger.Debug("development build, skipping update check")
		if explicit {
			sh.console.Neutral("This is a development build; self-update is disabled.")
		}
		return
	}
	if !sh.cfg.Update.Enabled && !explicit {
		sh.logger.Debug("update check disabled")
		return
	}

	coordinator := selfupdate.New(selfupdate.Config{
		CurrentVersion:     version.Version,
		VersionURL:         sh.cfg.Update.VersionURL,
		BinaryURL:          sh.cfg.Update.BinaryURL,
		PayloadName:        sh.cfg.Update.PayloadName,
		HelperName:         sh.cfg.Update.HelperName,
		MarkerName:         sh.cfg.Update.MarkerName,
		CheckTimeout:       sh.cfg.Network.CheckTimeout,
		HandoffTimeout:     sh.cfg.Update.HandoffTimeout,
		InsecureSkipVerify: sh.cfg.Network.InsecureSkipVerify,
	}, sh.fetcher, sh.prompter,
		selfupdate.WithLogger(sh.logger),
		selfupdate.WithNotify(func(msg string) { sh.console.Success("%s", msg) }),
		selfupdate.WithProgress(sh.console.Progress),
		selfupdate.WithExit(sh.exit),
	)

	if state := coordinator.Run(ctx); state == selfupdate.StateIdle && explicit {
		sh.console.Neutral("modsync %s is up to date or the update was skipped.", version.Version)
	}
}

func (sh *shell) printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
