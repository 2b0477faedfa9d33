package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/reallygood83/counselingautomation/internal/service"
	"github.com/reallygood83/counselingautomation/internal/transport/rest/middleware"
)

// ResponseHandler handles collection, analysis and deletion of survey responses
type ResponseHandler struct {
	collectionSvc *service.CollectionService
	analysisSvc   *service.AnalysisService
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(collectionSvc *service.CollectionService, analysisSvc *service.AnalysisService) *ResponseHandler {
	return &ResponseHandler{
		collectionSvc: collectionSvc,
		analysisSvc:   analysisSvc,
	}
}

// Collect handles POST /v1/surveys/{surveyId}/responses/collect
func (h *ResponseHandler) Collect(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	result, err := h.collectionSvc.Collect(r.Context(), middleware.GetTeacherEmail(r.Context()), surveyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List handles GET /v1/surveys/{surveyId}/responses
func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	saved, err := h.collectionSvc.ListSaved(r.Context(), middleware.GetTeacherEmail(r.Context()), surveyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

// AnalyzePending handles POST /v1/surveys/{surveyId}/responses/analyze
func (h *ResponseHandler) AnalyzePending(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	report, err := h.analysisSvc.AnalyzePending(r.Context(), middleware.GetTeacherEmail(r.Context()), surveyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// AnalyzeOne handles POST /v1/surveys/{surveyId}/responses/{responseId}/analyze
func (h *ResponseHandler) AnalyzeOne(w http.ResponseWriter, r *http.Request) {
	responseID := mux.Vars(r)["responseId"]

	result, err := h.analysisSvc.AnalyzeOne(r.Context(), middleware.GetTeacherEmail(r.Context()), responseID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /v1/surveys/{surveyId}/responses/{responseId}
func (h *ResponseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.collectionSvc.DeleteResponse(r.Context(), middleware.GetTeacherEmail(r.Context()), vars["surveyId"], vars["responseId"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": 1})
}

// DeleteAll handles DELETE /v1/surveys/{surveyId}/responses
func (h *ResponseHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	n, err := h.collectionSvc.DeleteAll(r.Context(), middleware.GetTeacherEmail(r.Context()), surveyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// GetRun handles GET /v1/analysis/runs/{runId}
func (h *ResponseHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]

	run, err := h.analysisSvc.GetRun(r.Context(), runID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "analysis run not found")
		return
	}

	writeJSON(w, http.StatusOK, run)
}
