package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"eventsds/internal/config"
	"eventsds/internal/model"
	"eventsds/internal/pipeline"
)

type phaseFlags struct {
	input    string
	tu       int64
	ow       int64
	lt       int64
	pw       int64
	strategy string
}

func (f *phaseFlags) bindEvents(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "measurement matrix (overrides input.path)")
}

func (f *phaseFlags) bindTu(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.tu, "tu", 0, "sampling period in seconds, 0 to infer or read it from events metadata")
}

func (f *phaseFlags) bindWindows(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.ow, "ow", 0, "observation window in Tu units (overrides windows.ow)")
	cmd.Flags().Int64Var(&f.lt, "lt", 0, "lead time in Tu units (overrides windows.lt)")
	cmd.Flags().Int64Var(&f.pw, "pw", 0, "prediction window in Tu units (overrides windows.pw)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "synchro, asynOW, withinPW or asynPW (overrides windows.window_strategy)")
}

// apply overrides only the flags the user actually set.
func (f *phaseFlags) apply(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("input") {
		cfg.Input.Path = f.input
	}
	if flags.Changed("tu") {
		cfg.Events.Tu = f.tu
		cfg.Windows.Tu = f.tu
	}
	if flags.Changed("ow") {
		cfg.Windows.OW = f.ow
	}
	if flags.Changed("lt") {
		cfg.Windows.LT = f.lt
	}
	if flags.Changed("pw") {
		cfg.Windows.PW = f.pw
	}
	if flags.Changed("strategy") {
		cfg.Windows.WindowStrategy = f.strategy
	}
	return config.Validate(cfg)
}

func runPhase(cmd *cobra.Command, opts *rootOptions, flags *phaseFlags, fn func(ctx context.Context, r *pipeline.Runner) ([]model.RunMetadata, error)) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	if err := flags.apply(cmd.Flags(), cfg); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runner, closer, err := newRunner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	runs, err := fn(ctx, runner)
	if cerr := closer(); cerr != nil {
		logger.Warn("shutdown", "err", cerr)
	}
	if err != nil {
		logger.Error("phase failed", "err", err)
		return err
	}
	for _, run := range runs {
		logger.Debug("run summary", "run_id", run.ID, "phase", run.Phase, "counters", run.Counters)
	}
	return nil
}

func NewEventsCommand(opts *rootOptions) *cobra.Command {
	flags := &phaseFlags{}
	command := &cobra.Command{
		Use:   "events",
		Short: "Derive bands, the event catalog and the event stream from the input matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhase(cmd, opts, flags, func(ctx context.Context, r *pipeline.Runner) ([]model.RunMetadata, error) {
				run, err := r.RunEvents(ctx)
				return []model.RunMetadata{run}, err
			})
		},
	}
	flags.bindEvents(command)
	flags.bindTu(command)
	return command
}

func NewWindowsCommand(opts *rootOptions) *cobra.Command {
	flags := &phaseFlags{}
	command := &cobra.Command{
		Use:   "windows",
		Short: "Extract observation/prediction window pairs from a committed event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhase(cmd, opts, flags, func(ctx context.Context, r *pipeline.Runner) ([]model.RunMetadata, error) {
				run, err := r.RunWindows(ctx)
				return []model.RunMetadata{run}, err
			})
		},
	}
	flags.bindWindows(command)
	flags.bindTu(command)
	return command
}

func NewRunCommand(opts *rootOptions) *cobra.Command {
	flags := &phaseFlags{}
	command := &cobra.Command{
		Use:   "run",
		Short: "Run the events phase and then the windows phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhase(cmd, opts, flags, func(ctx context.Context, r *pipeline.Runner) ([]model.RunMetadata, error) {
				return r.Run(ctx)
			})
		},
	}
	flags.bindEvents(command)
	flags.bindWindows(command)
	flags.bindTu(command)
	return command
}
