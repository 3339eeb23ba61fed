package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanstock/feature-cli/internal/loader"
)

var (
	exportIn  string
	exportOut string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a feature CSV to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(exportIn)
		if err != nil {
			return eris.Wrapf(err, "open input file %s", exportIn)
		}
		defer file.Close()

		if err := loader.CSVToXLSX(file, exportOut); err != nil {
			return err
		}
		zap.L().Info("workbook written", zap.String("out", exportOut))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportIn, "in", "features.csv", "input feature CSV")
	exportCmd.Flags().StringVar(&exportOut, "out", "features.xlsx", "output workbook")
	rootCmd.AddCommand(exportCmd)
}
