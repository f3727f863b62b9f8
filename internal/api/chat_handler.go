package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/model"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// handleChat answers a construction planning question grounded in the
// reference snapshot and records both turns of the conversation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode chat request"))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, eris.New("message is required"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	if err := s.store.SaveChatMessage(ctx, &model.ChatMessage{
		SessionID: req.SessionID,
		Role:      "user",
		Content:   req.Message,
	}); err != nil {
		zap.L().Warn("chat message persist failed", zap.String("session_id", req.SessionID), zap.Error(err))
	}

	answer, err := s.analyzer.Chat(ctx, req.Message)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	if err := s.store.SaveChatMessage(ctx, &model.ChatMessage{
		SessionID: req.SessionID,
		Role:      "assistant",
		Content:   answer,
	}); err != nil {
		zap.L().Warn("chat message persist failed", zap.String("session_id", req.SessionID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":     answer,
		"session_id": req.SessionID,
	})
}
