package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/service"
	"github.com/reallygood83/counselingautomation/internal/transport/rest/middleware"
)

// SurveyHandler handles survey endpoints
type SurveyHandler struct {
	surveySvc *service.SurveyService
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveySvc *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveySvc: surveySvc}
}

// SaveSurveyRequest is the request body for saving a survey
type SaveSurveyRequest struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	TargetGrade     string                 `json:"targetGrade"`
	DifficultyLevel string                 `json:"difficultyLevel"`
	Questions       []model.SurveyQuestion `json:"questions"`
}

// Generate handles POST /v1/surveys/generate
func (h *SurveyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TargetGrade == "" {
		writeError(w, http.StatusBadRequest, "targetGrade is required")
		return
	}

	questions := h.surveySvc.Generate(r.Context(), req)
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

// Save handles POST /v1/surveys
func (h *SurveyHandler) Save(w http.ResponseWriter, r *http.Request) {
	teacher := middleware.GetTeacherEmail(r.Context())

	var req SaveSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	survey := &model.Survey{
		Title:           req.Title,
		Description:     req.Description,
		TargetGrade:     req.TargetGrade,
		DifficultyLevel: req.DifficultyLevel,
		Questions:       req.Questions,
	}
	id, err := h.surveySvc.Save(r.Context(), teacher, survey)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"surveyId": id})
}

// Get handles GET /v1/surveys/{surveyId}
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	survey, err := h.surveySvc.Get(r.Context(), middleware.GetTeacherEmail(r.Context()), surveyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// List handles GET /v1/surveys
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	surveys, err := h.surveySvc.List(r.Context(), middleware.GetTeacherEmail(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"surveys": surveys})
}

// Deploy handles POST /v1/surveys/{surveyId}/deploy
func (h *SurveyHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	var opts service.DeployOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	survey, err := h.surveySvc.Deploy(r.Context(), middleware.GetTeacherEmail(r.Context()), surveyID, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// Delete handles DELETE /v1/surveys/{surveyId}
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	if err := h.surveySvc.Delete(r.Context(), middleware.GetTeacherEmail(r.Context()), surveyID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
