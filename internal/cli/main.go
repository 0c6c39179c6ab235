package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forPelevin/panelscribe/internal/config"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "panelscribe",
		Short:         "Speaker-attributed transcripts and reports for panel recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text or json)")
	pf.String("cache", ".cache", "Cache directory for intermediate audio")
	pf.String("db", ".cache/panelscribe.db", "SQLite run store")

	root.AddCommand(
		newRunCmd(),
		newAggregateCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
	return root
}

// loadConfig resolves settings for cmd, with its flags taking precedence.
func loadConfig(cmd *cobra.Command) (config.Root, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return config.Root{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Log, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: os.Getenv("NO_COLOR") != "",
		})
	}
	return log, nil
}
