package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/ukit/internal/printer"
)

type StatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	runID  string
	format string
}

// NewStatusCommand returns the status command.
func NewStatusCommand(rootCmd *RootCommand, app *kingpin.Application) *StatusCommand {
	c := &StatusCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("status", "Show a pipeline run and its steps.")
	c.Cmd.Arg("run-id", "Run ID.").Required().StringVar(&c.runID)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c StatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatusCommand) Run(ctx context.Context) error {
	repo, err := c.rootCmd.Repository()
	if err != nil {
		return fmt.Errorf("could not get repository: %w", err)
	}

	run, err := repo.GetRun(ctx, c.runID)
	if err != nil {
		return fmt.Errorf("could not get run: %w", err)
	}

	steps, err := repo.ListSteps(ctx, c.runID)
	if err != nil {
		return fmt.Errorf("could not list run steps: %w", err)
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintRun(*run, steps); err != nil {
		return fmt.Errorf("could not print run: %w", err)
	}

	return nil
}
