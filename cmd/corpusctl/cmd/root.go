// Package cmd provides the CLI commands for corpusctl.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusctl/internal/config"
	"github.com/Aman-CERP/corpusctl/internal/engine"
	"github.com/Aman-CERP/corpusctl/internal/index"
	"github.com/Aman-CERP/corpusctl/internal/logging"
	"github.com/Aman-CERP/corpusctl/internal/ui"
	"github.com/Aman-CERP/corpusctl/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for corpusctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpusctl",
		Short: "Index the ENCPOS corpus into a search engine",
		Long: `corpusctl builds and queries the full-text indexes of the ENCPOS corpus
(positions de thèses de l'École des chartes).

It reads the corpus metadata table, fetches each document from the DTS
text service, strips its markup and stores {content, metadata} in the
search engine. It also creates, reconfigures, deletes and searches the
indexes.

Configuration is read from ~/.config/corpusctl/config.yaml, .corpusctl.yaml,
.env and CORPUSCTL_* environment variables. See 'corpusctl config'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("corpusctl version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr and ~/.corpusctl/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newUpdateConfCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging sets up the default slog logger. Without --debug the level
// and rotation come from the configuration when it loads.
func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	} else if cfg, err := config.Load(workDir()); err == nil {
		logCfg.Level = cfg.Logging.Level
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	if debugMode {
		slog.Info("Debug logging enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Version))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	// PersistentPostRunE does not run when a command fails.
	_ = stopLogging(cmd, nil)
	return err
}

func workDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

// session is the configuration and engine shared by one command.
type session struct {
	cfg    *config.Config
	engine engine.Engine
}

// openSession loads the configuration and connects to the engine. The
// caller must Close the session.
func openSession() (*session, error) {
	cfg, err := config.Load(workDir())
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}

	slog.Debug("session_opened",
		slog.String("backend", cfg.Engine.Backend),
		slog.String("engine_url", cfg.Engine.URL))
	return &session{cfg: cfg, engine: eng}, nil
}

// runner builds the command runner. A nil renderer discards progress.
func (s *session) runner(renderer ui.Renderer) (*index.Runner, error) {
	return index.NewRunner(index.RunnerDependencies{
		Config:   s.cfg,
		Engine:   s.engine,
		Renderer: renderer,
	})
}

// target is the engine location shown to the user.
func (s *session) target() string {
	if s.cfg.Engine.Backend == config.BackendBleve {
		return s.cfg.Engine.BleveDir
	}
	return s.cfg.Engine.URL
}

func (s *session) Close() {
	if err := s.engine.Close(); err != nil {
		slog.Warn("engine_close_failed", slog.String("error", err.Error()))
	}
}
