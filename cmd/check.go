package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/evaluation"
	"github.com/KaramelBytes/estatefit-cli/internal/exporter"
	"github.com/KaramelBytes/estatefit-cli/internal/runs"
	"github.com/KaramelBytes/estatefit-cli/internal/stats"
	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

var (
	checkData        string
	checkModel       string
	checkTestSize    float64
	checkRandomState int64
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify a trained model on the reproduced train/validation split",
	Long: `Load a trained model, reproduce the training split with the same seed and
test size, and print training and validation metrics followed by an accuracy
report: ratings, sample predictions, error statistics, the share of
predictions within 10/15/20% and an overall grade.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		modelPath := stringFlag(cmd, "model", checkModel, cfg.ModelPath)
		dataPath := stringFlag(cmd, "data", checkData, cfg.DataPath)

		p, err := loadPipeline(modelPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Model loaded successfully!")
		f, err := loadFrame(dataPath)
		if err != nil {
			return err
		}
		rows, cols := f.Shape()
		fmt.Fprintf(out, "✓ Data loaded: %s samples, %d columns\n\n", evaluation.FormatThousands(float64(rows), 0), cols)

		X, y, err := featuresAndTarget(f, targetFor(p), idColumnFor(p))
		if err != nil {
			return err
		}
		testSize := cfg.TestSize
		if cmd.Flags().Changed("test-size") {
			testSize = checkTestSize
		}
		seed := p.Meta.Params.RandomState
		if cmd.Flags().Changed("random-state") {
			seed = checkRandomState
		}
		split, err := dataset.TrainTestSplit(X.NumRows(), testSize, seed)
		if err != nil {
			return err
		}
		trainTrue, valTrue := dataset.Pick(y, split.Train), dataset.Pick(y, split.Test)
		trainPred, err := p.Predict(ctx, X.Select(split.Train))
		if err != nil {
			return err
		}
		valPred, err := p.Predict(ctx, X.Select(split.Test))
		if err != nil {
			return err
		}
		meanPrice, _ := stats.MeanStd(y)
		rep, err := evaluation.NewAccuracyReport(trainTrue, trainPred, valTrue, valPred, meanPrice)
		if err != nil {
			return err
		}
		rep.Model = &evaluation.ModelInfo{
			Trees:       p.Meta.Params.NEstimators,
			MaxDepth:    p.Meta.Params.MaxDepth,
			RandomState: p.Meta.Params.RandomState,
			NJobs:       p.Meta.Params.NJobs,
			Numeric:     len(p.Meta.NumericColumns),
			Categorical: len(p.Meta.CategoricalColumns),
			TestSize:    testSize,
			CVFolds:     cfg.CVFolds,
			SizeBytes:   utils.FileSize(modelPath),
		}
		rep.Render(out, cfg.Currency)

		recordRun(ctx, runs.Run{
			Kind:      runs.KindCheck,
			Dataset:   dataPath,
			ModelPath: modelPath,
			MAE:       rep.Validation.MAE,
			RMSE:      rep.Validation.RMSE,
			R2:        rep.Validation.R2,
			Params:    map[string]any{"model_run_id": p.Meta.RunID, "test_size": testSize, "random_state": seed},
		})
		exportMetrics(func(em *exporter.Metrics) {
			em.Observe("train", rep.Train)
			em.Observe("validation", rep.Validation)
			em.ObserveFit(p.Meta.FitSeconds, p.Meta.Params.NEstimators)
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkData, "data", "", "labelled dataset (default data_path)")
	checkCmd.Flags().StringVar(&checkModel, "model", "", "model artifact (default model_path)")
	checkCmd.Flags().Float64Var(&checkTestSize, "test-size", 0, "validation fraction (default test_size)")
	checkCmd.Flags().Int64Var(&checkRandomState, "random-state", 0, "split seed (default: the model's random_state)")
}
