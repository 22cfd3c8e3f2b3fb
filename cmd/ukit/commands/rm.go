package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/ukit/internal/app/runrm"
	"github.com/slok/ukit/internal/printer"
)

type RmCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	runID string
}

// NewRmCommand returns the rm command.
func NewRmCommand(rootCmd *RootCommand, app *kingpin.Application) *RmCommand {
	c := &RmCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Remove a pipeline run and its steps.")
	c.Cmd.Arg("run-id", "Run ID.").Required().StringVar(&c.runID)

	return c
}

func (c RmCommand) Name() string { return c.Cmd.FullCommand() }

func (c RmCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, err := c.rootCmd.Repository()
	if err != nil {
		return fmt.Errorf("could not get repository: %w", err)
	}

	// Create remove service.
	svc, err := runrm.NewService(runrm.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute remove.
	run, err := svc.Run(ctx, runrm.Request{ID: c.runID})
	if err != nil {
		return fmt.Errorf("could not remove run: %w", err)
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Removed run: %s", run.ID)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
