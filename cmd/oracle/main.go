package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zuo-Peng/oracle-destiny/internal/archive"
	"github.com/Zuo-Peng/oracle-destiny/internal/config"
	"github.com/Zuo-Peng/oracle-destiny/internal/logging"
	"github.com/Zuo-Peng/oracle-destiny/internal/oracle"
	"github.com/Zuo-Peng/oracle-destiny/internal/tui"
)

var version = "dev"

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:     "oracle",
		Short:   "Oracle Destiny - chat with your birth chart",
		Version: version,
		Args:    cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a missing .env is fine; the environment and config file still apply
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runInteractive(cfg, nil)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(chartCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient(cfg *config.Config, logger *zap.Logger) *oracle.Client {
	return oracle.NewClient(cfg.ServerURL,
		oracle.WithTimeout(cfg.RequestTimeout),
		oracle.WithLogger(logger))
}

// runInteractive starts the TUI. The logger writes to the log file since
// the terminal belongs to the TUI.
func runInteractive(cfg *config.Config, opts *tui.Options) error {
	logger, err := logging.New(cfg.LogPath, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	o := tui.Options{}
	if opts != nil {
		o = *opts
	}
	o.Requester = newClient(cfg, logger)
	o.Policy = cfg.Policy()
	o.Logger = logger

	if cfg.Archive {
		db, err := archive.OpenDB(cfg.DBPath)
		if err != nil {
			logger.Warn("archive unavailable", zap.Error(err))
		} else {
			defer db.Close()
			o.Archiver = db
		}
	}

	logger.Info("session started",
		zap.String("server", cfg.ServerURL),
		zap.String("policy", cfg.Policy().String()))
	return tui.Run(o)
}
