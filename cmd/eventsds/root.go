package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"eventsds/internal/config"
	"eventsds/internal/logging"
	"eventsds/internal/model"
	"eventsds/internal/notify"
	"eventsds/internal/pipeline"
	"eventsds/internal/storage"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	command := &cobra.Command{
		Use:          "eventsds",
		Short:        "Build event streams and windowed prediction datasets from time-series measurements",
		SilenceUsage: true,
	}
	command.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML or JSON config file")
	command.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	command.AddCommand(
		NewEventsCommand(opts),
		NewWindowsCommand(opts),
		NewRunCommand(opts),
		NewInspectCommand(opts),
		NewExportCommand(opts),
		NewHistoryCommand(opts),
	)
	return command
}

func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		loaded, err := config.Load(config.ResolvePath(o.configPath))
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, logging.NewLogger(cfg.LogLevel, cfg.LogFormat), nil
}

// newRunner wires the optional run audit store and notifier. The returned
// closer releases both.
func newRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Runner, func() error, error) {
	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return nil, nil, model.ConfigErrorf("storage: %v", err)
	}
	if store != nil {
		if err := store.Init(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
	}
	publisher := notify.NewPublisher(cfg.Notify, logger)
	closer := func() error {
		var err error
		if store != nil {
			err = multierr.Append(err, store.Close())
		}
		return multierr.Append(err, publisher.Close())
	}
	runner := pipeline.NewRunner(cfg, logger,
		pipeline.WithStore(store),
		pipeline.WithNotifier(publisher),
	)
	return runner, closer, nil
}

// exitCode maps the error taxonomy to distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, model.ErrConfiguration):
		return 2
	case errors.Is(err, model.ErrDataContract):
		return 3
	case errors.Is(err, model.ErrCatalogResolution):
		return 4
	case errors.Is(err, model.ErrArtifactConflict):
		return 5
	default:
		return 1
	}
}
