package selfupdate

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"

	"github.com/leszamis/modsync/internal/download"
	"github.com/leszamis/modsync/internal/process"
	"github.com/leszamis/modsync/internal/version"
)

// CleanupEnv is set on the relaunched executable so it removes the leftovers of an update
const CleanupEnv = "MODSYNC_CLEANUP_OLD"

// ApplyCommand is the hidden subcommand the helper copy runs
const ApplyCommand = "apply-update"

// State is a step of the update flow
type State int

const (
	StateCheck State = iota
	StateIdle
	StateConfirm
	StateFetchUpdate
	StateHandoff
)

func (s State) String() string {
	switch s {
	case StateCheck:
		return "check"
	case StateIdle:
		return "idle"
	case StateConfirm:
		return "confirm"
	case StateFetchUpdate:
		return "fetch-update"
	case StateHandoff:
		return "handoff"
	}
	return "unknown"
}

// Config holds the configuration for self-update
type Config struct {
	CurrentVersion     string
	VersionURL         string
	BinaryURL          string
	PayloadName        string
	HelperName         string
	MarkerName         string
	CheckTimeout       time.Duration
	HandoffTimeout     time.Duration
	InsecureSkipVerify bool
}

// Prompter asks the user to approve the update
type Prompter interface {
	Confirm(question string) bool
}

// Fetcher downloads the replacement executable
type Fetcher interface {
	FileWithProgress(ctx context.Context, url, target string, callback download.ProgressCallback) error
}

// Launcher starts a detached process and returns its pid
type Launcher func(path string, args []string, env []string) (int, error)

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the diagnostic logger
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithStateHook calls fn on every state transition
func WithStateHook(fn func(State)) Option {
	return func(c *Coordinator) { c.onState = fn }
}

// WithNotify sets how the user is told about a pending restart
func WithNotify(fn func(msg string)) Option {
	return func(c *Coordinator) { c.notify = fn }
}

// WithProgress reports the download percentage of the replacement executable
func WithProgress(fn func(percent float64)) Option {
	return func(c *Coordinator) { c.progress = fn }
}

// WithExecutable overrides how the running executable is located
func WithExecutable(fn func() (string, error)) Option {
	return func(c *Coordinator) { c.executable = fn }
}

// WithLauncher overrides how the helper process is started
func WithLauncher(fn Launcher) Option {
	return func(c *Coordinator) { c.launch = fn }
}

// WithExit overrides how the process terminates after handoff
func WithExit(fn func(code int)) Option {
	return func(c *Coordinator) { c.exit = fn }
}

// Coordinator runs the check, confirm, fetch and handoff sequence
type Coordinator struct {
	cfg      Config
	http     *resty.Client
	fetcher  Fetcher
	prompter Prompter

	log        *log.Logger
	onState    func(State)
	notify     func(string)
	progress   func(float64)
	executable func() (string, error)
	launch     Launcher
	exit       func(int)
}

// New creates a coordinator
func New(cfg Config, fetcher Fetcher, prompter Prompter, opts ...Option) *Coordinator {
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 5 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.CheckTimeout).
		SetHeader("User-Agent", version.UserAgent())
	if cfg.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // opt-in via network.insecure_skip_verify
	}

	c := &Coordinator{
		cfg:        cfg,
		http:       client,
		fetcher:    fetcher,
		prompter:   prompter,
		executable: executablePath,
		launch:     process.StartAttached,
		exit:       os.Exit,
		notify:     func(string) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.New(io.Discard)
	}
	return c
}

// CheckVersion fetches the remote version marker
func (c *Coordinator) CheckVersion(ctx context.Context) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.cfg.VersionURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch version marker: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("version marker request returned %s", resp.Status())
	}
	return strings.TrimSpace(resp.String()), nil
}

// Run performs one update check. It returns StateIdle when the application
// should keep running; after a successful handoff the exit func has been called
// and StateHandoff is returned.
func (c *Coordinator) Run(ctx context.Context) State {
	c.enter(StateCheck)

	remote, err := c.CheckVersion(ctx)
	if err != nil {
		// Silent failure - the update check is not critical
		c.log.Warn("update check failed", "err", err)
		return c.enter(StateIdle)
	}

	if version.Matches(c.cfg.CurrentVersion, remote) {
		c.log.Debug("up to date", "version", c.cfg.CurrentVersion)
		return c.enter(StateIdle)
	}

	c.enter(StateConfirm)
	question := fmt.Sprintf("A new version is available (%s, you have %s). Update now?", remote, c.cfg.CurrentVersion)
	if !c.prompter.Confirm(question) {
		c.log.Info("update declined", "remote", remote)
		return c.enter(StateIdle)
	}

	c.enter(StateFetchUpdate)
	exePath, err := c.executable()
	if err != nil {
		c.log.Error("failed to locate executable", "err", err)
		return c.enter(StateIdle)
	}
	dir := filepath.Dir(exePath)
	payload := filepath.Join(dir, c.cfg.PayloadName)

	if err := c.fetcher.FileWithProgress(ctx, c.cfg.BinaryURL, payload, c.reportProgress); err != nil {
		c.log.Error("failed to download update", "err", err)
		_ = os.Remove(payload)
		return c.enter(StateIdle)
	}
	if err := os.Chmod(payload, 0755); err != nil {
		c.log.Warn("failed to mark update executable", "err", err)
	}

	c.enter(StateHandoff)
	if err := c.handoff(exePath, payload); err != nil {
		c.log.Error("failed to start update helper", "err", err)
		_ = os.Remove(payload)
		return c.enter(StateIdle)
	}

	c.exit(0)
	return StateHandoff
}

// handoff starts the helper copy. The readiness marker is written first: on
// Unix the launch replaces this process and never returns.
func (c *Coordinator) handoff(exePath, payload string) error {
	dir := filepath.Dir(exePath)
	helper := filepath.Join(dir, c.cfg.HelperName)
	marker := filepath.Join(dir, c.cfg.MarkerName)

	_ = os.Remove(marker)
	if err := copyFile(exePath, helper); err != nil {
		return fmt.Errorf("failed to copy helper: %w", err)
	}
	if err := os.WriteFile(marker, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		_ = os.Remove(helper)
		return fmt.Errorf("failed to write readiness marker: %w", err)
	}

	c.notify("Update downloaded. modsync will restart to finish updating.")

	args := []string{
		ApplyCommand,
		"--target", exePath,
		"--payload", payload,
		"--marker", marker,
		"--pid", strconv.Itoa(os.Getpid()),
	}
	if c.cfg.HandoffTimeout > 0 {
		args = append(args, "--timeout", c.cfg.HandoffTimeout.String())
	}
	pid, err := c.launch(helper, args, nil)
	if err != nil {
		_ = os.Remove(marker)
		_ = os.Remove(helper)
		return err
	}
	c.log.Debug("update helper started", "pid", pid)
	return nil
}

func (c *Coordinator) reportProgress(_, _ int64, percentage int) {
	if c.progress != nil {
		c.progress(float64(percentage))
	}
}

func (c *Coordinator) enter(s State) State {
	c.log.Debug("update state", "state", s)
	if c.onState != nil {
		c.onState(s)
	}
	return s
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
