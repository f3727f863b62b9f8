package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/store"
	sfpkg "github.com/planvector/drawing-cli/pkg/salesforce"
)

var (
	exportAnalysisID string
	exportAll        bool
	exportLimit      int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored analyses to Salesforce",
	Long:  "Pushes analysis summaries and their bill-of-quantities lines as CRM records. --id exports one analysis; --all bulk-exports stored analyses up to --limit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if (exportAnalysisID == "") == !exportAll {
			return eris.New("exactly one of --id or --all is required")
		}

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		sfClient, err := initSalesforce()
		if err != nil {
			return err
		}

		// A misconfigured org fails here with a field list instead of one
		// INVALID_FIELD error per record.
		if err := sfpkg.EnsureSchema(ctx, sfClient); err != nil {
			return err
		}

		if exportAnalysisID != "" {
			return exportOne(ctx, st, sfClient, exportAnalysisID)
		}
		return exportBulk(ctx, st, sfClient, exportLimit)
	},
}

func exportOne(ctx context.Context, st store.Store, sfClient sfpkg.Client, analysisID string) error {
	a, err := st.GetAnalysis(ctx, analysisID)
	if err != nil {
		return eris.Wrapf(err, "load analysis %s", analysisID)
	}
	lines, err := st.ListBOQLines(ctx, analysisID)
	if err != nil {
		return eris.Wrapf(err, "load boq lines %s", analysisID)
	}

	result, err := sfpkg.ExportAnalysis(ctx, sfClient, a, lines)
	if err != nil {
		return eris.Wrap(err, "export analysis")
	}

	zap.L().Info("export complete",
		zap.String("analysis_id", analysisID),
		zap.String("record_id", result.RecordID),
		zap.Bool("created", result.Created),
		zap.Int("boq_lines", result.BOQLines),
	)
	return nil
}

func exportBulk(ctx context.Context, st store.Store, sfClient sfpkg.Client, limit int) error {
	analyses, err := st.ListAnalyses(ctx, store.AnalysisFilter{Limit: limit})
	if err != nil {
		return eris.Wrap(err, "list analyses")
	}
	if len(analyses) == 0 {
		zap.L().Info("no stored analyses to export")
		return nil
	}

	items := make([]sfpkg.ExportItem, 0, len(analyses))
	for i := range analyses {
		lines, err := st.ListBOQLines(ctx, analyses[i].ID)
		if err != nil {
			return eris.Wrapf(err, "load boq lines %s", analyses[i].ID)
		}
		items = append(items, sfpkg.ExportItem{Analysis: &analyses[i], Lines: lines})
	}

	results, err := sfpkg.BulkExportAnalyses(ctx, sfClient, items)
	if err != nil {
		return eris.Wrap(err, "bulk export")
	}

	var created int
	for _, r := range results {
		if r.Created {
			created++
		}
	}
	zap.L().Info("bulk export complete",
		zap.Int("exported", len(results)),
		zap.Int("created", created),
		zap.Int("updated", len(results)-created),
	)
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportAnalysisID, "id", "", "analysis ID to export")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export all stored analyses")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 100, "max analyses to bulk export")
	rootCmd.AddCommand(exportCmd)
}
