package printer

import "github.com/slok/ukit/internal/model"

// Printer knows how to print pipeline run information in different formats.
type Printer interface {
	PrintRunList(runs []model.Run) error
	PrintRun(run model.Run, steps []model.Step) error
	PrintMessage(msg string) error
}
