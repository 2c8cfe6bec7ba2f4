package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/estatefit-cli/internal/plots"
)

var (
	plotsOutDir       string
	plotsScatterLimit int
)

var plotsCmd = &cobra.Command{
	Use:   "plots [file]",
	Short: "Render EDA charts (histograms, scatter, boxplot, heatmap) as PNG files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.DataPath
		if len(args) == 1 {
			path = args[0]
		}
		f, err := loadFrame(path)
		if err != nil {
			return err
		}
		dir := stringFlag(cmd, "out-dir", plotsOutDir, filepath.Join(cfg.OutputDir, "plots"))

		opt := plots.DefaultOptions()
		opt.Target = cfg.Target
		opt.IDColumn = cfg.IDColumn
		opt.CategoricalColumns = cfg.CategoricalColumns
		opt.Seed = cfg.RandomState
		opt.Logger = logger
		opt.AreaColumns = cfg.AreaColumns
		if len(cfg.GroupBy) > 0 {
			opt.DistrictColumn = cfg.GroupBy[0]
		}
		if cmd.Flags().Changed("scatter-limit") {
			opt.ScatterLimit = plotsScatterLimit
		}
		files, err := plots.WriteAll(f, dir, opt)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Wrote %d charts to %s\n", len(files), dir)
		for _, p := range files {
			fmt.Fprintf(out, "  - %s\n", filepath.Base(p))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotsCmd)
	plotsCmd.Flags().StringVar(&plotsOutDir, "out-dir", "", "directory for PNG files (default <output_dir>/plots)")
	plotsCmd.Flags().IntVar(&plotsScatterLimit, "scatter-limit", 5000, "maximum scatter points; larger inputs are sampled")
}
