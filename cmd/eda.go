package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/estatefit-cli/internal/analysis"
	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

var (
	edaOutputPath string
	edaReportDir  string
	edaSampleRows int
	edaTopValues  int
	edaGroupBy    []string
	edaCorr       bool
	edaOutliers   bool
	edaOutlierThr float64
)

var edaCmd = &cobra.Command{
	Use:   "eda [file]",
	Short: "Profile a CSV/TSV/XLSX dataset and print a Markdown summary",
	Long: `Profile a dataset: shape, head, schema, numeric and categorical summaries,
group-by statistics, correlations and robust outlier counts. With --report-dir
the EDA tables (missing values, duplicates, skewness, correlation matrix,
value counts, area percentiles) are also written as CSV files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.DataPath
		if len(args) == 1 {
			path = args[0]
		}
		f, err := loadFrame(path)
		if err != nil {
			return err
		}

		opt := analysis.DefaultOptions()
		if edaSampleRows > 0 {
			opt.SampleRows = edaSampleRows
		}
		if edaTopValues > 0 {
			opt.TopValues = edaTopValues
		}
		opt.GroupBy = cfg.GroupBy
		if cmd.Flags().Changed("group-by") {
			opt.GroupBy = edaGroupBy
		}
		if f.Has(cfg.Target) {
			opt.GroupMetrics = []string{cfg.Target}
		}
		opt.Correlations = edaCorr
		opt.Outliers = edaOutliers
		if edaOutlierThr > 0 {
			opt.OutlierThreshold = edaOutlierThr
		}
		rep, err := analysis.Profile(f, opt)
		if err != nil {
			return err
		}
		md := rep.Markdown()

		out := cmd.OutOrStdout()
		if edaOutputPath != "" {
			if err := utils.SafeWriteFile(edaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote analysis to %s\n", edaOutputPath)
		} else {
			fmt.Fprintln(out, md)
		}

		if edaReportDir != "" {
			files, err := analysis.WriteEDAReport(f, edaReportDir, analysis.EDAOptions{
				Target:             cfg.Target,
				CategoricalColumns: cfg.CategoricalColumns,
				AreaColumns:        cfg.AreaColumns,
				Logger:             logger,
			})
			if err != nil {
				return err
			}
			logger.Info("eda report written", zap.String("dir", edaReportDir), zap.Int("files", len(files)))
			fmt.Fprintf(out, "✓ Wrote %d EDA tables to %s\n", len(files), edaReportDir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(edaCmd)
	edaCmd.Flags().StringVarP(&edaOutputPath, "output", "o", "", "optional path to write the summary (Markdown)")
	edaCmd.Flags().StringVar(&edaReportDir, "report-dir", "", "also write the EDA tables as CSV files into this directory")
	edaCmd.Flags().IntVar(&edaSampleRows, "sample-rows", 5, "number of sample rows to include")
	edaCmd.Flags().IntVar(&edaTopValues, "top-values", 5, "top values listed per categorical column")
	edaCmd.Flags().StringSliceVar(&edaGroupBy, "group-by", nil, "comma-separated columns to group by (default from config)")
	edaCmd.Flags().BoolVar(&edaCorr, "correlations", true, "compute Pearson correlations among numeric columns")
	edaCmd.Flags().BoolVar(&edaOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	edaCmd.Flags().Float64Var(&edaOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}
