package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/forms"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service and collaborator sentinels to a status code
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSurveyNotFound),
		errors.Is(err, service.ErrResponseNotFound),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, forms.ErrFormNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNotDeployed):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, forms.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrDuplicateStudent),
		errors.Is(err, service.ErrNotAnalyzed):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, forms.ErrNoCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, forms.ErrRateLimited):
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}
