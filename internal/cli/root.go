// Package cli is the teachdash command line: the interactive dashboard and
// scriptable subcommands over the same backend client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
	"teachdash/internal/config"
	"teachdash/internal/events"
	"teachdash/internal/logging"
	"teachdash/internal/telemetry"
	"teachdash/internal/ui"
)

// Version information (set at build time).
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// shutdownTimeout bounds the trace flush on exit.
const shutdownTimeout = 5 * time.Second

// errSilent marks failures that were already reported to the user.
var errSilent = errors.New("")

// runtime is what every command needs once flags are parsed.
type runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	client    *api.Client
	store     *auth.Store
	telemetry *telemetry.Provider
}

// setup loads config and builds the logger, tracer and client. The
// interactive UI owns the terminal, so it logs to the configured file.
func (r *runtime) setup(cmd *cobra.Command, interactive bool) error {
	cfg, err := config.Load(cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	r.cfg = cfg

	logOpts := logging.Options{Verbose: cfg.Verbose}
	if interactive {
		logOpts.File = cfg.LogFile
	}
	r.logger, err = logging.New(logOpts)
	if err != nil {
		return err
	}
	if cfg.FileUsed != "" {
		r.logger.Debug("using config file", zap.String("path", cfg.FileUsed))
	}

	r.telemetry, err = telemetry.NewProvider(cmd.Context(), cfg.Telemetry())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	r.client, err = api.New(cfg.APIURL,
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(r.logger),
		api.WithTracer(r.telemetry.Tracer()))
	if err != nil {
		return err
	}
	r.store = auth.NewStoreAt(cfg.StateDir)
	return nil
}

// teardown flushes traces and logs. Safe to call more than once.
func (r *runtime) teardown() {
	if r.telemetry != nil {
		defer func() { r.telemetry = nil }()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := r.telemetry.Shutdown(ctx); err != nil && r.logger != nil {
			r.logger.Warn("flush traces", zap.Error(err))
		}
	}
	logging.Sync(r.logger)
}

// newRootCmd creates the root command. Without a subcommand it starts the
// interactive dashboard. The runtime must be torn down after execution.
func newRootCmd() (*cobra.Command, *runtime) {
	rt := &runtime{}
	rootCmd := &cobra.Command{
		Use:   "teachdash",
		Short: "Teacher performance dashboard",
		Long: `teachdash shows monthly teacher reports and video statistics, uploads
report spreadsheets and manages the video library API keys.

Run without a subcommand for the interactive dashboard.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return rt.setup(cmd, cmd == cmd.Root())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), rt)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd(rt))
	rootCmd.AddCommand(newLogoutCmd(rt))
	rootCmd.AddCommand(newTeachersCmd(rt))
	rootCmd.AddCommand(newConfigsCmd(rt))
	rootCmd.AddCommand(newUploadCmd(rt))
	rootCmd.AddCommand(newStatsCmd(rt))
	rootCmd.AddCommand(newUsersCmd(rt))
	return rootCmd, rt
}

// Execute runs the root command and reports errors on stderr.
func Execute() error {
	rootCmd, rt := newRootCmd()
	defer rt.teardown()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}

func runTUI(ctx context.Context, rt *runtime) error {
	sess, err := rt.store.Load()
	if err != nil {
		rt.logger.Warn("ignoring saved session", zap.Error(err))
		sess = nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	env := &ui.Env{
		Ctx:               ctx,
		Backend:           rt.client,
		Bus:               events.NewBus(),
		Logger:            rt.logger,
		PageSize:          rt.cfg.PageSize,
		ImportConcurrency: rt.cfg.ImportConcurrency,
	}
	app := ui.NewAppModel(env, rt.store, sess)
	defer app.Close()

	rt.logger.Info("starting dashboard", zap.String("api_url", rt.cfg.APIURL), zap.Bool("signed_in", sess != nil))
	p := tea.NewProgram(app.AsTeaModel(), programOptions(ctx)...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}

// programOptions reports every mouse movement, not only drags, so open
// selects can follow the pointer.
func programOptions(ctx context.Context) []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx)}
}
