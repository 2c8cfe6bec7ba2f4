package pipeline

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

// Importance is one transformed feature and its share of impurity decrease.
type Importance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Importances pairs feature names with forest importances, highest first.
func (p *Pipeline) Importances() ([]Importance, error) {
	if !p.Fitted() {
		return nil, fmt.Errorf("pipeline: importances: model not fitted")
	}
	vals, err := p.Model.FeatureImportances()
	if err != nil {
		return nil, err
	}
	names := p.Transformer.FeatureNamesOut()
	if len(names) != len(vals) {
		return nil, fmt.Errorf("pipeline: %d feature names for %d importances", len(names), len(vals))
	}
	out := make([]Importance, len(vals))
	for i := range vals {
		out[i] = Importance{Feature: names[i], Importance: vals[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	return out, nil
}

// Top keeps the first n importances; n <= 0 keeps all.
func Top(imps []Importance, n int) []Importance {
	if n <= 0 || n >= len(imps) {
		return imps
	}
	return imps[:n]
}

// WriteImportancesCSV writes feature,importance rows to path.
func WriteImportancesCSV(path string, imps []Importance) error {
	rows := make([][]string, 0, len(imps)+1)
	rows = append(rows, []string{"feature", "importance"})
	for _, imp := range imps {
		rows = append(rows, []string{imp.Feature, strconv.FormatFloat(imp.Importance, 'g', -1, 64)})
	}
	if err := utils.WriteCSV(path, rows); err != nil {
		return fmt.Errorf("importances: %w", err)
	}
	return nil
}
