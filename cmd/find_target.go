package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/estatefit-cli/internal/analysis"
	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
)

var (
	ftTrain string
	ftTest  string
)

var findTargetCmd = &cobra.Command{
	Use:   "find-target",
	Short: "Find the label column: present in the training file, absent from the test file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		train, err := loadFrame(stringFlag(cmd, "train", ftTrain, cfg.DataPath))
		if err != nil {
			return err
		}
		test, err := loadFrame(stringFlag(cmd, "test", ftTest, cfg.TestPath))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		targets := dataset.FindTarget(train, test)
		fmt.Fprintf(out, "Target column found: [%s]\n", strings.Join(targets, ", "))
		if len(targets) == 0 {
			fmt.Fprintln(out, "No target column found.")
			return nil
		}
		target := targets[0]
		kind, err := train.Kind(target)
		if err != nil {
			return err
		}
		cells, _ := train.Column(target)
		fmt.Fprintf(out, "\nTarget: %s\n", target)
		fmt.Fprintf(out, "Data type: %s\n", kind)
		fmt.Fprintf(out, "Unique values: %d\n", len(analysis.ValueCounts(cells, false)))
		head := cells
		if len(head) > 5 {
			head = head[:5]
		}
		fmt.Fprintf(out, "Sample values: [%s]\n", strings.Join(head, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findTargetCmd)
	findTargetCmd.Flags().StringVar(&ftTrain, "train", "", "training file (default data_path)")
	findTargetCmd.Flags().StringVar(&ftTest, "test", "", "test file (default test_path)")
}
