package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/reallygood83/counselingautomation/internal/forms"
	"github.com/reallygood83/counselingautomation/internal/service"
)

type contextKey string

const (
	TeacherEmailKey contextKey = "teacherEmail"
	TeacherNameKey  contextKey = "teacherName"
)

// GoogleTokenHeader carries the teacher's Google OAuth access token for Forms calls
const GoogleTokenHeader = "X-Google-Access-Token"

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireTeacher validates the teacher JWT from the Authorization header
func (m *AuthMiddleware) RequireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateTeacherToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), TeacherEmailKey, claims.TeacherEmail)
		ctx = context.WithValue(ctx, TeacherNameKey, claims.TeacherName)
		if g := strings.TrimSpace(r.Header.Get(GoogleTokenHeader)); g != "" {
			ctx = forms.WithAccessToken(ctx, g)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTeacherEmail extracts the teacher email from context
func GetTeacherEmail(ctx context.Context) string {
	if v, ok := ctx.Value(TeacherEmailKey).(string); ok {
		return v
	}
	return ""
}

// GetTeacherName extracts the teacher display name from context
func GetTeacherName(ctx context.Context) string {
	if v, ok := ctx.Value(TeacherNameKey).(string); ok {
		return v
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
