package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"unionhub/internal/platform/config"
	"unionhub/internal/platform/logger"
)

var (
	cfg config.Config
	log *slog.Logger

	rootCmd = &cobra.Command{
		Use:          "server",
		Short:        "Union membership and event administration backend",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			log = logger.New(cfg.Server.LogFormat, cfg.Server.LogLevel)
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(
		serveCmd,
		importCmd,
		seedCmd,
		adminCmd,
	)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
