package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/models"
	"github.com/ternarybob/studium/internal/services/rag"
)

// CourseHandler serves course catalog analytics
type CourseHandler struct {
	ragService *rag.Service
	logger     arbor.ILogger
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(ragService *rag.Service, logger arbor.ILogger) *CourseHandler {
	return &CourseHandler{
		ragService: ragService,
		logger:     logger,
	}
}

// Stats handles GET /api/courses requests
func (h *CourseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats := h.ragService.Analytics()
	if stats.CourseTitles == nil {
		stats.CourseTitles = []string{}
	}
	if stats.Courses == nil {
		stats.Courses = []models.CourseSummary{}
	}

	WriteJSON(w, http.StatusOK, stats)
}
