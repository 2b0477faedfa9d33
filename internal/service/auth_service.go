package service

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/reallygood83/counselingautomation/internal/model"
)

const teacherTokenTTL = 24 * time.Hour

// AuthService handles teacher authentication
type AuthService struct {
	teacherPassword string
	jwtSecret       []byte
	now             func() time.Time
}

// NewAuthService creates a new auth service. An empty password accepts any teacher email.
func NewAuthService(jwtSecret, teacherPassword string) *AuthService {
	return &AuthService{
		teacherPassword: teacherPassword,
		jwtSecret:       []byte(jwtSecret),
		now:             time.Now,
	}
}

// Login validates the teacher and returns a signed token
func (s *AuthService) Login(req model.LoginRequest) (*model.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidCredentials
	}
	if s.teacherPassword != "" && req.Password != s.teacherPassword {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	claims := &model.TeacherClaims{
		TeacherEmail: email,
		TeacherName:  strings.TrimSpace(req.Name),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(teacherTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:        tokenString,
		TeacherEmail: email,
	}, nil
}

// ValidateTeacherToken validates a teacher JWT and returns claims
func (s *AuthService) ValidateTeacherToken(tokenString string) (*model.TeacherClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.TeacherClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.TeacherClaims)
	if !ok || !token.Valid || claims.TeacherEmail == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
