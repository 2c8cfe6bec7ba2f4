package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/estatefit-cli/internal/pipeline"
)

var (
	impModel string
	impTop   int
	impOut   string
)

var importanceCmd = &cobra.Command{
	Use:   "importance",
	Short: "Show the most important transformed features of a trained model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		modelPath := stringFlag(cmd, "model", impModel, cfg.ModelPath)
		top := intFlag(cmd, "top", impTop, cfg.TopFeatures)
		outPath := stringFlag(cmd, "out", impOut,
			filepath.Join(cfg.OutputDir, fmt.Sprintf("feature_importance_top%d.csv", top)))

		fmt.Fprintln(out, "Loading model:", modelPath)
		p, err := loadPipeline(modelPath)
		if err != nil {
			return err
		}
		imps, err := p.Importances()
		if err != nil {
			return err
		}
		imps = pipeline.Top(imps, top)

		rows := make([][]string, len(imps))
		for i, imp := range imps {
			rows[i] = []string{strconv.Itoa(i + 1), imp.Feature, strconv.FormatFloat(imp.Importance, 'f', 6, 64)}
		}
		fmt.Fprintf(out, "\nTop %d important features:\n", len(imps))
		fmt.Fprintln(out, renderTable([]string{"#", "feature", "importance"}, rows))

		if err := pipeline.WriteImportancesCSV(outPath, imps); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n✓ Saved CSV: %s\n", outPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importanceCmd)
	importanceCmd.Flags().StringVar(&impModel, "model", "", "model artifact (default model_path)")
	importanceCmd.Flags().IntVar(&impTop, "top", 0, "number of features (default top_features)")
	importanceCmd.Flags().StringVarP(&impOut, "out", "o", "", "CSV path (default <output_dir>/feature_importance_top<N>.csv)")
}
