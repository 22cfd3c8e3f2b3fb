package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/ukit/internal/model"
)

// JSONPrinter prints pipeline run information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// runItem represents a run in the list output (subset of fields).
type runItem struct {
	ID        string    `json:"id"`
	Pipeline  string    `json:"pipeline"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// runOutput represents the full run output.
type runOutput struct {
	ID          string       `json:"id"`
	Pipeline    string       `json:"pipeline"`
	Status      string       `json:"status"`
	Concurrency int          `json:"concurrency"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at"`
	Steps       []stepOutput `json:"steps,omitempty"`
}

// stepOutput represents a run step output.
type stepOutput struct {
	ID         string     `json:"id"`
	Sequence   int        `json:"sequence"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintRunList prints runs in JSON format with a subset of fields.
func (j *JSONPrinter) PrintRunList(runs []model.Run) error {
	items := make([]runItem, len(runs))
	for i, r := range runs {
		items[i] = runItem{
			ID:        r.ID,
			Pipeline:  r.Pipeline,
			Status:    string(r.Status),
			CreatedAt: r.CreatedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintRun prints a detailed run with its steps in JSON format.
func (j *JSONPrinter) PrintRun(run model.Run, steps []model.Step) error {
	output := runOutput{
		ID:          run.ID,
		Pipeline:    run.Pipeline,
		Status:      string(run.Status),
		Concurrency: run.Concurrency,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt.UTC(),
		StartedAt:   utcTimePtr(run.StartedAt),
		FinishedAt:  utcTimePtr(run.FinishedAt),
	}

	for _, s := range steps {
		output.Steps = append(output.Steps, stepOutput{
			ID:         s.ID,
			Sequence:   s.Sequence,
			Name:       s.Name,
			Status:     string(s.Status),
			Error:      s.Error,
			StartedAt:  utcTimePtr(s.StartedAt),
			FinishedAt: utcTimePtr(s.FinishedAt),
		})
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func utcTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
