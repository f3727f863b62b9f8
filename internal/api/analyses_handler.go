package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/store"
)

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	filter := store.AnalysisFilter{
		DocumentID: r.URL.Query().Get("document_id"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Offset = parsed
		}
	}

	analyses, err := s.store.ListAnalyses(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if analyses == nil {
		analyses = []model.Analysis{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	analysis, err := s.store.GetAnalysis(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// handleAnalysisReport serves a report artifact for the analysis, generating
// and recording it when no current artifact exists on disk.
func (s *Server) handleAnalysisReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "json" {
		writeError(w, http.StatusBadRequest, eris.Errorf("unsupported report format: %q", format))
		return
	}

	analysis, err := s.store.GetAnalysis(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	path, err := s.reportPath(ctx, analysis, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+analysis.ID+`.`+format+`"`)
	http.ServeFile(w, r, path)
}

// reportPath returns the artifact path for the analysis, reusing the stored
// record when its file still exists.
func (s *Server) reportPath(ctx context.Context, analysis *model.Analysis, format string) (string, error) {
	if rec, err := s.store.GetReport(ctx, analysis.ID, format); err == nil && rec != nil {
		if _, statErr := os.Stat(rec.Path); statErr == nil {
			return rec.Path, nil
		}
	}

	var path string
	var err error
	switch format {
	case "xlsx":
		path, err = s.reports.Excel(analysis)
	default:
		path, err = s.reports.JSON(analysis)
	}
	if err != nil {
		return "", err
	}

	if err := s.store.SaveReport(ctx, &model.Report{
		AnalysisID: analysis.ID,
		Format:     format,
		Path:       path,
	}); err != nil {
		return "", err
	}
	return path, nil
}
