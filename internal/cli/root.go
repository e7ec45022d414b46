// Package cli implements the command line of the points-to analysis.
package cli

import (
	"context"
	goflag "flag"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/l7mp/pointsto/internal/buildinfo"
	"github.com/l7mp/pointsto/pkg/analysis"
	"github.com/l7mp/pointsto/pkg/config"
	"github.com/l7mp/pointsto/pkg/metrics"
	"github.com/l7mp/pointsto/pkg/report"
	"github.com/l7mp/pointsto/pkg/visualize"
)

// Options holds the flags of the command.
type Options struct {
	ConfigFile  string
	Workers     int
	Format      string
	MetricsFile string
	Explain     bool
	Graph       string

	zap zap.Options
}

// NewRootCommand creates the root command.
func NewRootCommand(info buildinfo.BuildInfo) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "pointsto <input> [optimized]",
		Short: "Andersen-style points-to analysis",
		Long: "Computes the value-flow, memory-alias and value-alias relations of a program given as an\n" +
			"edge list of assignments (a) and dereferences (d), one \"<src> <dst> <type>\" per line.",
		Version:      info.String(),
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts.logger(cmd.ErrOrStderr()), info, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	flags.IntVarP(&opts.Workers, "workers", "w", 1, "number of workers")
	flags.StringVar(&opts.Format, "format", string(config.FormatText), "output format (text|json)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "write run metrics to this file in the Prometheus text format")
	flags.BoolVar(&opts.Explain, "explain", false, "print the execution plan before running")
	flags.StringVar(&opts.Graph, "graph", "", "print the dataflow graph before running (dot|mermaid)")

	opts.zap = zap.Options{
		Development:     true,
		StacktraceLevel: zapcore.Level(3),
		TimeEncoder:     zapcore.RFC3339NanoTimeEncoder,
	}
	zapFlags := goflag.NewFlagSet("zap", goflag.ContinueOnError)
	opts.zap.BindFlags(zapFlags)
	flags.AddGoFlagSet(zapFlags)

	return cmd
}

// config assembles the configuration: defaults, then the config file, then the positional
// arguments, then the flags set on the command line.
func (o *Options) config(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg := config.Defaults()
	if o.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(o.ConfigFile); err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyArgs(args); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = o.Workers
	}
	if flags.Changed("format") {
		cfg.Format = config.Format(o.Format)
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.MetricsFile
	}
	if flags.Changed("explain") {
		cfg.Explain = o.Explain
	}
	if flags.Changed("graph") {
		cfg.Graph = o.Graph
	}

	return cfg, cfg.Validate()
}

func (o *Options) logger(w io.Writer) logr.Logger {
	zapOpts := o.zap
	zapOpts.DestWriter = w
	return zap.New(zap.UseFlagOptions(&zapOpts)).WithName("pointsto")
}

// run executes the analysis. The report goes to out; the plan and the graph go to out as well,
// except in the JSON format where out must hold the document only and they go to errOut.
func run(ctx context.Context, cfg config.Config, log logr.Logger, info buildinfo.BuildInfo, out, errOut io.Writer) error {
	setupLog := log.WithName("setup")
	setupLog.Info(fmt.Sprintf("starting pointsto %s", info.String()), "config", cfg.String())

	diag := out
	if cfg.Format == config.FormatJSON {
		diag = errOut
	}

	if cfg.Explain {
		plan, err := analysis.Explain(cfg.Variant)
		if err != nil {
			return err
		}
		fmt.Fprint(diag, plan)
	}

	if cfg.Graph != "" {
		gen, err := visualize.NewGenerator(cfg.Graph)
		if err != nil {
			return err
		}
		p, err := analysis.Compile(cfg.Variant)
		if err != nil {
			return err
		}
		fmt.Fprint(diag, gen.Generate(visualize.BuildGraph(p)))
	}

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
	}

	rep := report.New(out, cfg.Format)
	engine := &analysis.Engine{Config: cfg, Logger: log, Metrics: m, Observer: rep}

	res, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	if err := rep.Result(res); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if err := m.WriteToTextfile(cfg.MetricsFile); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}

	return nil
}
