package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/fetcher"
	"github.com/planvector/drawing-cli/internal/model"
)

var (
	importURL      string
	importManifest string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import drawing files from HTTP or FTP sources",
	Long:  "Downloads drawings into the uploads directory and registers each as a document. --url pulls a single file (zip archives are expanded); --manifest pulls every entry of a drawing register (CSV or XLSX).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if (importURL == "") == (importManifest == "") {
			return eris.New("exactly one of --url or --manifest is required")
		}

		if err := cfg.Validate("import"); err != nil {
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

		timeout := time.Duration(cfg.Import.TimeoutSecs) * time.Second
		httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Import.UserAgent,
			Timeout:    timeout,
			MaxRetries: cfg.Import.MaxRetries,
		})
		ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout})

		importer := fetcher.NewImporter(httpFetcher, ftpFetcher, st, cfg.Server.UploadDir)

		var docs []model.Document
		if importURL != "" {
			docs, err = importer.ImportURL(ctx, importURL)
		} else {
			docs, err = importer.ImportManifest(ctx, importManifest)
		}
		if err != nil {
			return eris.Wrap(err, "import drawings")
		}

		zap.L().Info("import complete",
			zap.Int("documents", len(docs)),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importURL, "url", "", "drawing file URL (http, https, or ftp)")
	importCmd.Flags().StringVar(&importManifest, "manifest", "", "path to a drawing register manifest (CSV or XLSX)")
	rootCmd.AddCommand(importCmd)
}
