package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/estatefit-cli/internal/pipeline"
)

var (
	predTest  string
	predModel string
	predOut   string
	predShow  int
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict prices for a test dataset and write the submission CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		modelPath := stringFlag(cmd, "model", predModel, cfg.ModelPath)
		outPath := stringFlag(cmd, "out", predOut, cfg.Submission)

		p, err := loadPipeline(modelPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Model loaded")

		f, err := loadFrame(stringFlag(cmd, "test", predTest, cfg.TestPath))
		if err != nil {
			return err
		}
		rows, cols := f.Shape()
		fmt.Fprintf(out, "✓ Test data shape: (%d, %d)\n", rows, cols)

		ids, X := pipeline.SubmissionIDs(f, idColumnFor(p))
		if p.Meta.Target != "" && X.Has(p.Meta.Target) {
			X = X.Drop(p.Meta.Target)
		}
		preds, err := p.Predict(ctx, X)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Generated %d predictions\n", len(preds))
		if err := pipeline.WriteSubmission(outPath, ids, preds); err != nil {
			return err
		}
		logger.Info("submission written", zap.String("path", outPath), zap.Int("rows", len(preds)))
		fmt.Fprintf(out, "✓ Submission saved to: %s\n", outPath)

		n := min(predShow, len(preds))
		if n > 0 {
			fmt.Fprintln(out, "\nSample predictions:")
			fmt.Fprintf(out, "%4s %10s %16s\n", "", "index", "price")
			for i := 0; i < n; i++ {
				fmt.Fprintf(out, "%4d %10s %16.2f\n", i, ids[i], preds[i])
			}
		}
		return nil
	},
}

func loadPipeline(path string) (*pipeline.Pipeline, error) {
	p, err := pipeline.Load(path)
	if err != nil {
		return nil, err
	}
	p.SetLogger(logger)
	logger.Debug("model loaded",
		zap.String("path", path),
		zap.String("run_id", p.Meta.RunID),
		zap.Int("trees", p.Meta.Params.NEstimators))
	return p, nil
}

// idColumnFor prefers the id column the model was trained with.
func idColumnFor(p *pipeline.Pipeline) string {
	if p.Meta.IDColumn != "" {
		return p.Meta.IDColumn
	}
	return cfg.IDColumn
}

func targetFor(p *pipeline.Pipeline) string {
	if p.Meta.Target != "" {
		return p.Meta.Target
	}
	return cfg.Target
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVar(&predTest, "test", "", "dataset to predict (default test_path)")
	predictCmd.Flags().StringVar(&predModel, "model", "", "model artifact (default model_path)")
	predictCmd.Flags().StringVarP(&predOut, "out", "o", "", "submission CSV (default submission_path)")
	predictCmd.Flags().IntVar(&predShow, "show", 10, "number of predictions to print")
}
