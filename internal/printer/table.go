package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/ukit/internal/model"
)

// TablePrinter prints pipeline run information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRunList prints runs in a table format.
func (t *TablePrinter) PrintRunList(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "ID\tPIPELINE\tSTATUS\tDURATION\tCREATED")

	// Print rows.
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Pipeline,
			r.Status,
			RunDuration(r.StartedAt, r.FinishedAt),
			TimeAgo(r.CreatedAt),
		)
	}

	return nil
}

// PrintRun prints a detailed run view with its steps.
func (t *TablePrinter) PrintRun(run model.Run, steps []model.Step) error {
	fmt.Fprintf(t.writer, "ID:           %s\n", run.ID)
	fmt.Fprintf(t.writer, "Pipeline:     %s\n", run.Pipeline)
	fmt.Fprintf(t.writer, "Status:       %s\n", run.Status)
	fmt.Fprintf(t.writer, "Concurrency:  %d\n", run.Concurrency)
	fmt.Fprintf(t.writer, "Created:      %s\n", FormatTimestamp(run.CreatedAt))

	if run.StartedAt != nil {
		fmt.Fprintf(t.writer, "Started:      %s\n", FormatTimestamp(*run.StartedAt))
	}
	if run.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:     %s\n", FormatTimestamp(*run.FinishedAt))
	}
	if run.Error != "" {
		fmt.Fprintf(t.writer, "Error:        %s\n", run.Error)
	}

	if len(steps) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "SEQ\tSTEP\tSTATUS\tDURATION\tERROR")
	for _, s := range steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			s.Sequence,
			s.Name,
			s.Status,
			RunDuration(s.StartedAt, s.FinishedAt),
			s.Error,
		)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
