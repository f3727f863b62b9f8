package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/model"
)

var (
	reportAnalysisID string
	reportFormat     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an Excel or JSON report for a stored analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "report")
		if err != nil {
			return err
		}
		defer env.Close()

		a, err := env.Store.GetAnalysis(ctx, reportAnalysisID)
		if err != nil {
			return eris.Wrapf(err, "load analysis %s", reportAnalysisID)
		}

		var path string
		switch reportFormat {
		case "xlsx":
			path, err = env.Reports.Excel(a)
		case "json":
			path, err = env.Reports.JSON(a)
		default:
			return eris.Errorf("unsupported format %q (want xlsx or json)", reportFormat)
		}
		if err != nil {
			return eris.Wrap(err, "generate report")
		}

		if err := env.Store.SaveReport(ctx, &model.Report{
			AnalysisID: a.ID,
			Format:     reportFormat,
			Path:       path,
		}); err != nil {
			zap.L().Warn("report record not saved", zap.Error(err))
		}

		zap.L().Info("report generated",
			zap.String("analysis_id", a.ID),
			zap.String("format", reportFormat),
			zap.String("path", path),
		)

		fmt.Println(path)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportAnalysisID, "id", "", "analysis ID (required)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "xlsx", "report format: xlsx or json")
	_ = reportCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(reportCmd)
}
