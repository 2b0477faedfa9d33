package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/reallygood83/counselingautomation/internal/service"
	"github.com/reallygood83/counselingautomation/internal/transport/rest/middleware"
)

// StudentHandler handles roster endpoints
type StudentHandler struct {
	studentSvc *service.StudentService
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(studentSvc *service.StudentService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc}
}

// BulkRegisterRequest is the request body for bulk registration
type BulkRegisterRequest struct {
	Students []service.StudentInput `json:"students"`
}

// Register handles POST /v1/students
func (h *StudentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.StudentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	student, err := h.studentSvc.Register(ctx, middleware.GetTeacherEmail(ctx), middleware.GetTeacherName(ctx), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"studentId": student.ID,
		"student":   student,
	})
}

// BulkRegister handles PUT /v1/students
func (h *StudentHandler) BulkRegister(w http.ResponseWriter, r *http.Request) {
	var req BulkRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	result, err := h.studentSvc.BulkRegister(ctx, middleware.GetTeacherEmail(ctx), middleware.GetTeacherName(ctx), req.Students)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List handles GET /v1/students?className=
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.studentSvc.List(r.Context(), middleware.GetTeacherEmail(r.Context()), r.URL.Query().Get("className"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"students": students,
		"count":    len(students),
	})
}

// Delete handles DELETE /v1/students/{studentId}
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["studentId"]

	if err := h.studentSvc.Delete(r.Context(), middleware.GetTeacherEmail(r.Context()), studentID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
