package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/bom-analyzer/internal/bom"
)

var templateOut string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write an example BOM CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, closeFn, err := openOutput(cmd.OutOrStdout(), templateOut)
		if err != nil {
			return err
		}
		if err := bom.WriteCSV(w, bom.Template()); err != nil {
			_ = closeFn()
			return err
		}
		return closeFn()
	},
}

func init() {
	templateCmd.Flags().StringVar(&templateOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(templateCmd)
}
