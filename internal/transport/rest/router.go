package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/reallygood83/counselingautomation/internal/service"
	"github.com/reallygood83/counselingautomation/internal/transport/rest/handler"
	"github.com/reallygood83/counselingautomation/internal/transport/rest/middleware"
	"github.com/reallygood83/counselingautomation/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService       *service.AuthService
	SurveyService     *service.SurveyService
	CollectionService *service.CollectionService
	AnalysisService   *service.AnalysisService
	StudentService    *service.StudentService
	ReportService     *service.ReportService
	WSHub             *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	surveyHandler := handler.NewSurveyHandler(c.SurveyService)
	responseHandler := handler.NewResponseHandler(c.CollectionService, c.AnalysisService)
	studentHandler := handler.NewStudentHandler(c.StudentService)
	reportHandler := handler.NewReportHandler(c.ReportService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SurveyService)
		v1.HandleFunc("/ws/surveys/{surveyId}", wsHandler.SurveyWS).Methods("GET")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Teacher routes (require teacher auth)
	teacherRoutes := v1.NewRoute().Subrouter()
	teacherRoutes.Use(authMW.RequireTeacher)

	teacherRoutes.HandleFunc("/surveys/generate", surveyHandler.Generate).Methods("POST", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys", surveyHandler.Save).Methods("POST", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys", surveyHandler.List).Methods("GET", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys/{surveyId}", surveyHandler.Get).Methods("GET", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys/{surveyId}", surveyHandler.Delete).Methods("DELETE", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys/{surveyId}/deploy", surveyHandler.Deploy).Methods("POST", "OPTIONS")

	// Response collection and analysis
	teacherRoutes.HandleFunc("/surveys/{surveyId}/responses/collect", responseHandler.Collect).Methods("POST", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys/{surveyId}/responses/analyze", responseHandler.AnalyzePending).Methods("POST", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys/{surveyId}/responses", responseHandler.List).Methods("GET", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys/{surveyId}/responses", responseHandler.DeleteAll).Methods("DELETE", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys/{surveyId}/responses/{responseId}/analyze", responseHandler.AnalyzeOne).Methods("POST", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys/{surveyId}/responses/{responseId}", responseHandler.Delete).Methods("DELETE", "OPTIONS")
	teacherRoutes.HandleFunc("/analysis/runs/{runId}", responseHandler.GetRun).Methods("GET", "OPTIONS")

	// Report routes
	teacherRoutes.HandleFunc("/surveys/{surveyId}/responses/{responseId}/report", reportHandler.Student).Methods("GET", "OPTIONS")
	teacherRoutes.HandleFunc("/surveys/{surveyId}/report", reportHandler.Class).Methods("GET", "OPTIONS")

	// Roster routes
	teacherRoutes.HandleFunc("/students", studentHandler.Register).Methods("POST", "OPTIONS")
	teacherRoutes.HandleFunc("/students", studentHandler.BulkRegister).Methods("PUT", "OPTIONS")
	teacherRoutes.HandleFunc("/students", studentHandler.List).Methods("GET", "OPTIONS")
	teacherRoutes.HandleFunc("/students/{studentId}", studentHandler.Delete).Methods("DELETE", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization, " + middleware.GoogleTokenHeader
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
