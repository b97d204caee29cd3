package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"unionhub/internal/importer/service"
	id "unionhub/pkg/domain"
	"unionhub/pkg/requestcontext"
)

var (
	importSource    string
	importEventID   string
	importEmergency bool

	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Import members from a file or an Informer dataset",
	}

	importCSVCmd = &cobra.Command{
		Use:   "csv FILE",
		Short: "Import members from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := importOptions()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			ctx := cliContext(cmd)
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.importer.ImportCSV(ctx, f, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	importInformerCmd = &cobra.Command{
		Use:   "informer TOKEN_OR_URL",
		Short: "Import members from an Informer dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := importOptions()
			if err != nil {
				return err
			}
			ctx := cliContext(cmd)
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.importer.ImportInformer(ctx, args[0], opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
)

func init() {
	importCmd.PersistentFlags().StringVar(&importSource, "source", "", "data source tag recorded on imported members")
	importCmd.PersistentFlags().StringVar(&importEventID, "event", "", "register imported members to this event")
	importCmd.PersistentFlags().BoolVar(&importEmergency, "emergency", false, "let this import overwrite higher-priority data")
	importCmd.AddCommand(importCSVCmd, importInformerCmd)
}

func importOptions() (service.Options, error) {
	opts := service.Options{Emergency: importEmergency}
	source, err := id.ParseSource(importSource)
	if err != nil {
		return opts, err
	}
	opts.Source = source
	if importEventID != "" {
		eventID, err := id.ParseEventID(importEventID)
		if err != nil {
			return opts, err
		}
		opts.EventID = &eventID
	}
	return opts, nil
}

// cliContext tags work started from the command line so audit entries name
// the operator.
func cliContext(cmd *cobra.Command) context.Context {
	return requestcontext.WithAdminUsername(cmd.Context(), "cli")
}
