package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"eventsds/internal/inspect"
	"eventsds/internal/model"
	"eventsds/internal/storage"
)

var errCheckFailed = errors.New("windows dataset failed validation")

func NewInspectCommand(opts *rootOptions) *cobra.Command {
	var strategy string
	command := &cobra.Command{
		Use:   "inspect <windows.parquet>",
		Short: "Validate a windows dataset and print its summary as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ws model.WindowStrategy
			if strategy != "" {
				parsed, err := model.ParseWindowStrategy(strategy)
				if err != nil {
					return err
				}
				ws = parsed
			}
			rep, err := inspect.Check(args[0], ws)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if !rep.OK() {
				return fmt.Errorf("%w: %d violation(s)", errCheckFailed, len(rep.Violations))
			}
			return nil
		},
	}
	command.Flags().StringVar(&strategy, "strategy", "", "also check the per-strategy emptiness rule")
	return command
}

func NewExportCommand(opts *rootOptions) *cobra.Command {
	command := &cobra.Command{
		Use:   "export <windows.parquet> <out.csv>",
		Short: "Export a windows dataset as CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			_, logger, err := opts.load()
			if err != nil {
				return err
			}
			out := args[1]
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer func() {
				err = multierr.Append(err, f.Close())
				if err != nil {
					_ = os.Remove(out)
				}
			}()
			n, err := inspect.ExportCSV(args[0], f)
			if err != nil {
				return err
			}
			logger.Info("windows exported", "path", out, "rows", n)
			return nil
		},
	}
	return command
}

func NewHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int
	command := &cobra.Command{
		Use:   "history",
		Short: "List recent phase runs from the audit store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if !cfg.Storage.Enabled {
				return model.ConfigErrorf("storage.enabled is false; no run history is kept")
			}
			store, err := storage.NewStore(cfg.Storage)
			if err != nil {
				return model.ConfigErrorf("storage: %v", err)
			}
			defer store.Close()
			ctx := cmd.Context()
			if err := store.Init(ctx); err != nil {
				return err
			}
			runs, err := store.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tPHASE\tGENERATED\tTU\tELAPSED\tCOUNTERS")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.3fs\t%s\n",
					run.ID,
					run.Phase,
					run.GeneratedAt.Format(time.RFC3339),
					run.Tu,
					run.Elapsed,
					formatCounters(run.Counters),
				)
			}
			return tw.Flush()
		},
	}
	command.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return command
}

func formatCounters(counters map[string]int) string {
	data, err := json.Marshal(counters)
	if err != nil {
		return ""
	}
	return string(data)
}
