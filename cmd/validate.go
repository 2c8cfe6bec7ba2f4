package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/estatefit-cli/internal/exporter"
	"github.com/KaramelBytes/estatefit-cli/internal/pipeline"
	"github.com/KaramelBytes/estatefit-cli/internal/runs"
)

var (
	cvData  string
	cvFolds int
	cvFlags modelFlags
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run shuffled k-fold cross-validation of the price pipeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		dataPath := stringFlag(cmd, "data", cvData, cfg.DataPath)
		k := intFlag(cmd, "folds", cvFolds, cfg.CVFolds)
		params := cvFlags.params(cmd)

		f, err := loadFrame(dataPath)
		if err != nil {
			return err
		}
		X, y, err := featuresAndTarget(f, cfg.Target, cfg.IDColumn)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Running %d-fold cross validation on %d rows...\n", k, X.NumRows())
		p := pipeline.New(params,
			pipeline.WithLogger(logger),
			pipeline.WithTarget(cfg.Target),
			pipeline.WithIDColumn(cfg.IDColumn),
			pipeline.WithDataset(dataPath),
		)
		res, err := p.CrossValidate(ctx, X, y, k, params.RandomState)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n=== CROSS VALIDATION RESULTS (%d folds) ===\n", res.K)
		fmt.Fprintf(out, "%-6s %18s %18s %10s\n", "Fold", "MAE", "RMSE", "R²")
		for i := range res.MAE.Folds {
			fmt.Fprintf(out, "%-6d %18.2f %18.2f %10.4f\n", i+1, res.MAE.Folds[i], res.RMSE.Folds[i], res.R2.Folds[i])
		}
		fmt.Fprintf(out, "\nMAE:  mean=%.2f std=%.2f\n", res.MAE.Mean, res.MAE.Std)
		fmt.Fprintf(out, "RMSE: mean=%.2f std=%.2f\n", res.RMSE.Mean, res.RMSE.Std)
		fmt.Fprintf(out, "R²:   mean=%.4f std=%.4f\n", res.R2.Mean, res.R2.Std)

		mean := res.Mean()
		recordRun(ctx, runs.Run{
			Kind:    runs.KindCV,
			Dataset: dataPath,
			MAE:     mean.MAE,
			RMSE:    mean.RMSE,
			R2:      mean.R2,
			Params:  withFolds(paramsMap(params), k),
		})
		exportMetrics(func(em *exporter.Metrics) { em.Observe("cv", mean) })
		return nil
	},
}

func withFolds(m map[string]any, k int) map[string]any {
	if m == nil {
		m = map[string]any{}
	}
	m["cv_folds"] = k
	return m
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&cvData, "data", "", "training dataset (default data_path)")
	validateCmd.Flags().IntVar(&cvFolds, "folds", 0, "number of folds (default cv_folds)")
	cvFlags.register(validateCmd)
}
