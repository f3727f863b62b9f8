package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/extract"
	"github.com/planvector/drawing-cli/internal/model"
)

// handleUpload accepts a multipart drawing upload, runs extraction and
// analysis synchronously, and returns the stored document with its analysis.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, eris.Wrap(err, "parse upload form"))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, eris.New("file field is required"))
		return
	}
	defer file.Close()

	name := filepath.Base(strings.TrimSpace(header.Filename))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		writeError(w, http.StatusBadRequest, eris.Errorf("invalid file name: %q", header.Filename))
		return
	}

	storedPath := filepath.Join(s.cfg.UploadDir, uuid.New().String()+"_"+name)
	size, err := saveUpload(file, storedPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	doc, err := s.store.CreateDocument(ctx, model.Document{
		Filename:    name,
		StoredPath:  storedPath,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   size,
		Source:      "upload",
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	zap.L().Info("drawing uploaded",
		zap.String("document_id", doc.ID),
		zap.String("filename", name),
		zap.Int64("size_bytes", size),
	)

	analysis, err := s.analyzeDocument(ctx, doc)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document": doc,
		"analysis": analysis,
	})
}

// analyzeDocument runs extract -> analyze -> persist for a stored document,
// updating the document status at each step.
func (s *Server) analyzeDocument(ctx context.Context, doc *model.Document) (*model.Analysis, error) {
	setStatus := func(status model.DocumentStatus) {
		if err := s.store.UpdateDocumentStatus(ctx, doc.ID, status); err != nil {
			zap.L().Warn("document status update failed",
				zap.String("document_id", doc.ID),
				zap.String("status", string(status)),
				zap.Error(err),
			)
		} else {
			doc.Status = status
		}
	}

	setStatus(model.DocumentStatusExtracting)
	text, err := extract.FromFile(ctx, s.extractor, doc.StoredPath)
	if err != nil {
		setStatus(model.DocumentStatusFailed)
		return nil, eris.Wrapf(err, "extract text from %s", doc.Filename)
	}

	setStatus(model.DocumentStatusAnalyzing)
	analysis, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		setStatus(model.DocumentStatusFailed)
		return nil, eris.Wrapf(err, "analyze %s", doc.Filename)
	}
	analysis.DocumentID = doc.ID

	if err := s.store.SaveAnalysis(ctx, analysis); err != nil {
		setStatus(model.DocumentStatusFailed)
		return nil, err
	}
	if analysis.Scan != nil && len(analysis.Scan.BOQ) > 0 {
		if _, err := s.store.SaveBOQLines(ctx, analysis.ID, analysis.Scan.BOQ); err != nil {
			zap.L().Warn("boq persist failed", zap.String("analysis_id", analysis.ID), zap.Error(err))
		}
	}

	setStatus(model.DocumentStatusComplete)
	return analysis, nil
}

func saveUpload(src io.Reader, dest string) (int64, error) {
	out, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrap(err, "create upload file")
	}
	defer out.Close()

	n, err := io.Copy(out, src)
	if err != nil {
		os.Remove(dest)
		return 0, eris.Wrap(err, "write upload file")
	}
	return n, nil
}
