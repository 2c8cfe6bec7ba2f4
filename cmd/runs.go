package cmd

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/estatefit-cli/internal/runs"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded train, validate and check runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		store, err := runs.Open(cfg.RunsDB)
		if err != nil {
			return err
		}
		defer store.Close()
		list, err := store.List(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}
		rows := make([][]string, len(list))
		for i, r := range list {
			id := r.ID
			if len(id) > 8 {
				id = id[:8]
			}
			rows[i] = []string{
				id,
				r.Kind,
				humanize.Time(r.CreatedAt),
				humanize.CommafWithDigits(r.MAE, 2),
				humanize.CommafWithDigits(r.RMSE, 2),
				strconv.FormatFloat(r.R2, 'f', 4, 64),
				r.Dataset,
			}
		}
		fmt.Fprintln(out, renderTable([]string{"id", "kind", "created", "mae", "rmse", "r2", "dataset"}, rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to list (0 = all)")
}
