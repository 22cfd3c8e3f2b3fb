package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/ukit/internal/app/runpipeline"
	"github.com/slok/ukit/internal/async"
	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/pipeline"
	"github.com/slok/ukit/internal/printer"
	"github.com/slok/ukit/internal/utils/env"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	pipelineFile string
	concurrency  int
	onError      string
	envSpecs     []string
	timeout      time.Duration
	format       string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run a pipeline from a YAML file.")
	c.Cmd.Arg("pipeline-file", "Path to the pipeline YAML file.").Required().StringVar(&c.pipelineFile)
	c.Cmd.Flag("concurrency", "Override the pipeline concurrency.").IntVar(&c.concurrency)
	c.Cmd.Flag("on-error", "Override the pipeline error policy.").EnumVar(&c.onError, string(model.ErrorPolicyStop), string(model.ErrorPolicyContinue))
	c.Cmd.Flag("env", "Extra env for command steps (KEY=VALUE, or KEY to inherit from the host). Repeatable.").Short('e').StringsVar(&c.envSpecs)
	c.Cmd.Flag("timeout", "Cancel the run after this duration (e.g. 5m). 0 disables it.").DurationVar(&c.timeout)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Load pipeline and apply flag overrides.
	p, err := pipeline.LoadFile(c.pipelineFile)
	if err != nil {
		return fmt.Errorf("could not load pipeline: %w", err)
	}
	if c.concurrency > 0 {
		p.Concurrency = c.concurrency
	}
	if c.onError != "" {
		p.OnError = model.ErrorPolicy(c.onError)
	}

	extraEnv, err := env.ParseSpecs(c.envSpecs)
	if err != nil {
		return fmt.Errorf("could not parse env flags: %w", err)
	}

	repo, err := c.rootCmd.Repository()
	if err != nil {
		return fmt.Errorf("could not get repository: %w", err)
	}

	svc, err := runpipeline.NewService(runpipeline.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Cancellation stays cooperative: a termination signal (or the timeout)
	// cancels the token, in-flight steps stop themselves and state lands in
	// the repository. The service context itself is never cancelled.
	source := async.NewSource()
	stopBridge := context.AfterFunc(ctx, func() {
		logger.Infof("Cancelling run")
		source.Cancel()
	})
	defer stopBridge()

	if c.timeout > 0 {
		timer := time.AfterFunc(c.timeout, func() {
			logger.Warningf("Run timed out after %s, cancelling", c.timeout)
			source.Cancel()
		})
		defer timer.Stop()
	}

	run, err := svc.Run(context.WithoutCancel(ctx), runpipeline.Request{
		Pipeline: p,
		Env:      extraEnv,
		Token:    source.Token(),
	})
	if err != nil {
		return fmt.Errorf("could not run pipeline: %w", err)
	}

	steps, err := repo.ListSteps(context.WithoutCancel(ctx), run.ID)
	if err != nil {
		return fmt.Errorf("could not list run steps: %w", err)
	}

	var pr printer.Printer
	switch c.format {
	case "json":
		pr = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		pr = printer.NewTablePrinter(c.rootCmd.Stdout)
	}
	if err := pr.PrintRun(*run, steps); err != nil {
		return fmt.Errorf("could not print run: %w", err)
	}

	if run.Status == model.RunStatusFailed {
		return fmt.Errorf("run %s failed: %s", run.ID, run.Error)
	}

	return nil
}
