package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanstock/feature-cli/internal/features"
	"github.com/urbanstock/feature-cli/internal/pipeline"
)

var (
	featuresInput  inputFlags
	featuresRegion string
	featuresOut    string
	featuresFormat string
	featuresNoDB   bool
	featuresTables string
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Compute the full feature table for a region",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in, err := loadInput(featuresInput)
		if err != nil {
			return err
		}

		tables, err := features.LoadTables(featuresTables)
		if err != nil {
			return err
		}

		p := pipeline.New(cfg, nil, tables)
		if !featuresNoDB {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			p = pipeline.New(cfg, st, tables)
		}

		res, err := p.Run(ctx, featuresRegion, in)
		if err != nil {
			return err
		}

		if err := writeResult(res, featuresOut, featuresFormat); err != nil {
			return err
		}
		zap.L().Info("feature table written",
			zap.String("out", featuresOut),
			zap.Int("rows", len(res.Buildings)),
			zap.Int("columns", len(res.NumericColumns)+len(res.CategoricalColumns)),
		)
		return nil
	},
}

func init() {
	registerInputFlags(featuresCmd, &featuresInput)
	featuresCmd.Flags().StringVar(&featuresRegion, "region", "default", "region name recorded with the run")
	featuresCmd.Flags().StringVar(&featuresOut, "out", "features.csv", "output file")
	featuresCmd.Flags().StringVar(&featuresFormat, "format", "csv", "output format: csv or xlsx")
	featuresCmd.Flags().BoolVar(&featuresNoDB, "no-db", false, "disable run tracking and stage caching")
	featuresCmd.Flags().StringVar(&featuresTables, "tables", "", "YAML lookup table overrides")
	rootCmd.AddCommand(featuresCmd)
}
