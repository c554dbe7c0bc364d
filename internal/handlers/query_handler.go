package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/models"
	"github.com/ternarybob/studium/internal/services/rag"
)

// QueryHandler handles course question requests
type QueryHandler struct {
	ragService *rag.Service
	validate   *validator.Validate
	logger     arbor.ILogger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(ragService *rag.Service, logger arbor.ILogger) *QueryHandler {
	return &QueryHandler{
		ragService: ragService,
		validate:   validator.New(),
		logger:     logger,
	}
}

type queryRequest struct {
	Query     string `json:"query" validate:"required"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Answer    string          `json:"answer"`
	Sources   []models.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

// Query handles POST /api/query requests
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode query request")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "Query field is required")
		return
	}

	h.logger.Info().
		Int("query_length", len(req.Query)).
		Str("session_id", req.SessionID).
		Msg("Processing query request")

	response, err := h.ragService.Query(r.Context(), req.Query, req.SessionID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to answer query")
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrModelCall) {
			status = http.StatusBadGateway
		}
		WriteError(w, status, "Failed to generate answer: "+err.Error())
		return
	}

	sources := response.Sources
	if sources == nil {
		sources = []models.Source{}
	}

	WriteJSON(w, http.StatusOK, queryResponse{
		Answer:    response.Answer,
		Sources:   sources,
		SessionID: response.SessionID,
	})
}
