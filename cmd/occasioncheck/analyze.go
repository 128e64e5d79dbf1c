package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"occasioncheck/internal/bootstrap"
	"occasioncheck/internal/errs"
	"occasioncheck/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze one listing and print the record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		rt, err := bootstrap.Run(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout())
		defer cancel()

		rec, err := rt.Pipeline.Run(ctx, model.ListingQuery{URL: args[0]})
		if err != nil {
			// the pipeline already logged the raw reply
			return fmt.Errorf("%s: %s", errs.CodeOf(err), errs.Message(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(rec)
	},
}
