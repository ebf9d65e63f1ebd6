// Command aibom operates the lineage registry and BOM store directly,
// without going through the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ai-bom-service/internal/app"
	"ai-bom-service/internal/config"
)

// Exit codes
const (
	exitOK       = 0
	exitError    = 1
	exitMismatch = 2
	exitUnsigned = 3
)

// errMismatch and errUnsigned make the process exit with exitMismatch and
// exitUnsigned after the result has been printed.
var (
	errMismatch = errors.New("integrity check failed")
	errUnsigned = errors.New("deploy check failed: unsigned BOM with model components")
)

var (
	configFile   string
	storePath    string
	outputFormat string
	actor        string

	application *app.App

	rootCmd = &cobra.Command{
		Use:           "aibom",
		Short:         "Register AI artifacts, record their lineage and build auditable BOMs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationNoStore] == "true" {
				return nil
			}
			return openApp(cmd.Context())
		},
	}
)

const annotationNoStore = "no-store"

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "configuration file (overrides CONFIG_FILE)")
	flags.StringVar(&storePath, "store", "", "badger store directory (overrides BADGER_PATH)")
	flags.StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
	flags.StringVar(&actor, "actor", os.Getenv("USER"), "actor recorded in the audit log")
}

func openApp(ctx context.Context) error {
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if storePath != "" {
		cfg.Storage.Driver = config.DriverBadger
		cfg.Badger.Path = storePath
	}
	// Keep the CLI quiet unless asked otherwise.
	if os.Getenv("LOGGER_LEVEL") == "" {
		cfg.Logger.Level = "warn"
	}
	cfg.Logger.Format = "text"
	app.InitLogger(cfg.Logger)

	application, err = app.New(ctx, cfg)
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if application != nil {
		if cerr := application.Close(); cerr != nil {
			log.WithError(cerr).Warn("close store")
		}
	}
	switch {
	case err == nil:
		os.Exit(exitOK)
	case errors.Is(err, errMismatch):
		os.Exit(exitMismatch)
	case errors.Is(err, errUnsigned):
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitUnsigned)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}
}
