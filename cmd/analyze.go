package main

import (
	"encoding/json"
	"mime"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/extract"
	"github.com/planvector/drawing-cli/internal/model"
)

var analyzeFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single drawing file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		info, err := os.Stat(analyzeFile)
		if err != nil {
			return eris.Wrap(err, "stat drawing file")
		}

		doc, err := env.Store.CreateDocument(ctx, model.Document{
			Filename:    filepath.Base(analyzeFile),
			StoredPath:  analyzeFile,
			ContentType: mime.TypeByExtension(filepath.Ext(analyzeFile)),
			SizeBytes:   info.Size(),
			Source:      "upload",
			Status:      model.DocumentStatusUploaded,
		})
		if err != nil {
			return eris.Wrap(err, "register document")
		}

		setStatus := func(status model.DocumentStatus) {
			if err := env.Store.UpdateDocumentStatus(ctx, doc.ID, status); err != nil {
				zap.L().Warn("document status update failed",
					zap.String("document_id", doc.ID),
					zap.String("status", string(status)),
					zap.Error(err),
				)
			}
		}

		setStatus(model.DocumentStatusExtracting)
		text, err := extract.FromFile(ctx, env.Extractor, analyzeFile)
		if err != nil {
			setStatus(model.DocumentStatusFailed)
			return eris.Wrapf(err, "extract text from %s", doc.Filename)
		}

		setStatus(model.DocumentStatusAnalyzing)
		result, err := env.Pipeline.Analyze(ctx, text)
		if err != nil {
			setStatus(model.DocumentStatusFailed)
			return eris.Wrapf(err, "analyze %s", doc.Filename)
		}
		result.DocumentID = doc.ID

		if err := env.Store.SaveAnalysis(ctx, result); err != nil {
			setStatus(model.DocumentStatusFailed)
			return eris.Wrap(err, "save analysis")
		}
		if result.Scan != nil && len(result.Scan.BOQ) > 0 {
			if _, err := env.Store.SaveBOQLines(ctx, result.ID, result.Scan.BOQ); err != nil {
				zap.L().Warn("boq persist failed", zap.String("analysis_id", result.ID), zap.Error(err))
			}
		}
		setStatus(model.DocumentStatusComplete)

		zap.L().Info("analysis complete",
			zap.String("document_id", doc.ID),
			zap.String("analysis_id", result.ID),
			zap.Bool("is_mock", result.IsMock),
			zap.Bool("fallback", result.Fallback),
		)

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "path to drawing PDF or text notes (required)")
	_ = analyzeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(analyzeCmd)
}
