package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/estatefit-cli/internal/evaluation"
)

var (
	poData  string
	poModel string
	poRow   int
)

var predictOneCmd = &cobra.Command{
	Use:   "predict-one",
	Short: "Predict the price of a single row of a dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p, err := loadPipeline(stringFlag(cmd, "model", poModel, cfg.ModelPath))
		if err != nil {
			return err
		}
		f, err := loadFrame(stringFlag(cmd, "data", poData, cfg.DataPath))
		if err != nil {
			return err
		}
		if poRow < 0 || poRow >= f.NumRows() {
			return fmt.Errorf("row %d out of range: dataset has %d rows", poRow, f.NumRows())
		}
		sample := f.Drop(targetFor(p), idColumnFor(p)).Select([]int{poRow})

		line := strings.Repeat("=", 70)
		fmt.Fprintln(out, line)
		fmt.Fprintln(out, "PREDICT ONE PROPERTY")
		fmt.Fprintln(out, line)
		fmt.Fprintf(out, "Input row %d:\n", poRow)
		cols := sample.Columns()
		width := 0
		for _, c := range cols {
			width = max(width, len(c))
		}
		for i, c := range cols {
			fmt.Fprintf(out, "  %-*s  %s\n", width, c, sample.Row(0)[i])
		}

		pred, err := p.Predict(cmd.Context(), sample)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nPredicted %s: %s %s\n", targetFor(p), evaluation.FormatThousands(pred[0], 2), cfg.Currency)
		fmt.Fprintln(out, line)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(predictOneCmd)
	predictOneCmd.Flags().StringVar(&poData, "data", "", "dataset holding the row (default data_path)")
	predictOneCmd.Flags().StringVar(&poModel, "model", "", "model artifact (default model_path)")
	predictOneCmd.Flags().IntVar(&poRow, "row", 0, "0-based row position")
}
