package pipeline

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

// SubmissionIDs returns the id column of f when present, otherwise row
// positions, together with f minus the id column.
func SubmissionIDs(f *dataset.Frame, idColumn string) ([]string, *dataset.Frame) {
	if idColumn != "" && f.Has(idColumn) {
		ids, _ := f.Column(idColumn)
		return ids, f.Drop(idColumn)
	}
	ids := make([]string, f.NumRows())
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	return ids, f
}

// WriteSubmission writes the index,price CSV.
func WriteSubmission(path string, ids []string, preds []float64) error {
	if len(ids) != len(preds) {
		return fmt.Errorf("submission: %d ids for %d predictions", len(ids), len(preds))
	}
	rows := make([][]string, 0, len(ids)+1)
	rows = append(rows, []string{"index", "price"})
	for i := range ids {
		rows = append(rows, []string{ids[i], strconv.FormatFloat(preds[i], 'f', -1, 64)})
	}
	if err := utils.WriteCSV(path, rows); err != nil {
		return fmt.Errorf("submission: %w", err)
	}
	return nil
}
