package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/evaluation"
	"github.com/KaramelBytes/estatefit-cli/internal/exporter"
	"github.com/KaramelBytes/estatefit-cli/internal/pipeline"
	"github.com/KaramelBytes/estatefit-cli/internal/runs"
	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

var (
	trainData     string
	trainModel    string
	trainTestSize float64
	trainFlags    modelFlags
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the price pipeline on a hold-out split and save it",
	Long: `Train the preprocessing + random forest pipeline. The target and id columns
are dropped, remaining columns are split into numeric and categorical features,
and the data is split into training and validation rows. Validation MAE, RMSE
and R² are printed and the fitted pipeline is saved to model_path.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		dataPath := stringFlag(cmd, "data", trainData, cfg.DataPath)
		modelPath := stringFlag(cmd, "model", trainModel, cfg.ModelPath)
		testSize := cfg.TestSize
		if cmd.Flags().Changed("test-size") {
			testSize = trainTestSize
		}
		params := trainFlags.params(cmd)

		f, err := loadFrame(dataPath)
		if err != nil {
			return err
		}
		X, y, err := featuresAndTarget(f, cfg.Target, cfg.IDColumn)
		if err != nil {
			return err
		}
		numeric, categorical := X.SplitKinds()
		fmt.Fprintf(out, "Numerical features (%d): [%s]\n", len(numeric), strings.Join(numeric, ", "))
		fmt.Fprintf(out, "Categorical features (%d): [%s]\n", len(categorical), strings.Join(categorical, ", "))

		split, err := dataset.TrainTestSplit(X.NumRows(), testSize, params.RandomState)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nTraining samples: %d\n", len(split.Train))
		fmt.Fprintf(out, "Validation samples: %d\n", len(split.Test))

		p := pipeline.New(params,
			pipeline.WithLogger(logger),
			pipeline.WithTarget(cfg.Target),
			pipeline.WithIDColumn(cfg.IDColumn),
			pipeline.WithDataset(dataPath),
			pipeline.WithColumns(numeric, categorical),
		)
		fmt.Fprintln(out, "\nTraining model...")
		if err := p.Fit(ctx, X.Select(split.Train), dataset.Pick(y, split.Train)); err != nil {
			return err
		}
		fmt.Fprintln(out, "Training complete!")

		m, err := p.Score(ctx, X.Select(split.Test), dataset.Pick(y, split.Test))
		if err != nil {
			return err
		}
		p.Meta.Validation = &m
		printMetrics(cmd, "MODEL PERFORMANCE", m)

		if err := p.Save(modelPath); err != nil {
			return err
		}
		logger.Info("model saved", zap.String("path", modelPath), zap.String("run_id", p.Meta.RunID))
		fmt.Fprintf(out, "\n✓ Model saved to: %s\n", modelPath)
		if size := utils.FileSize(modelPath); size >= 0 {
			fmt.Fprintf(out, "✓ Model size: %s\n", humanize.Bytes(uint64(size)))
		}
		fmt.Fprintf(out, "✓ Metadata: %s\n", pipeline.MetaPath(modelPath))

		recordRun(ctx, runs.Run{
			ID:        p.Meta.RunID,
			Kind:      runs.KindTrain,
			Dataset:   dataPath,
			ModelPath: modelPath,
			MAE:       m.MAE,
			RMSE:      m.RMSE,
			R2:        m.R2,
			Params:    paramsMap(params),
		})
		exportMetrics(func(em *exporter.Metrics) {
			em.Observe("validation", m)
			em.ObserveFit(p.Meta.FitSeconds, params.NEstimators)
		})
		return nil
	},
}

func printMetrics(cmd *cobra.Command, title string, m evaluation.Metrics) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n=== %s ===\n", title)
	fmt.Fprintf(out, "MAE:  %s %s\n", evaluation.FormatThousands(m.MAE, 2), cfg.Currency)
	fmt.Fprintf(out, "RMSE: %s %s\n", evaluation.FormatThousands(m.RMSE, 2), cfg.Currency)
	fmt.Fprintf(out, "R²:   %.4f\n", m.R2)
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringVar(&trainData, "data", "", "training dataset (default data_path)")
	trainCmd.Flags().StringVar(&trainModel, "model", "", "output model path (default model_path)")
	trainCmd.Flags().Float64Var(&trainTestSize, "test-size", 0, "validation fraction (default test_size)")
	trainFlags.register(trainCmd)
}
