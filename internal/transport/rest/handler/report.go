package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/reallygood83/counselingautomation/internal/service"
	"github.com/reallygood83/counselingautomation/internal/transport/rest/middleware"
)

// ReportHandler handles report endpoints
type ReportHandler struct {
	reportSvc *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Student handles GET /v1/surveys/{surveyId}/responses/{responseId}/report
func (h *ReportHandler) Student(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	report, err := h.reportSvc.StudentReport(r.Context(), middleware.GetTeacherEmail(r.Context()), vars["surveyId"], vars["responseId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Class handles GET /v1/surveys/{surveyId}/report
func (h *ReportHandler) Class(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	report, err := h.reportSvc.ClassReport(r.Context(), middleware.GetTeacherEmail(r.Context()), surveyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
