package service

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/model"
)

func TestLoginAndValidate(t *testing.T) {
	svc := NewAuthService("secret", "letmein")

	res, err := svc.Login(model.LoginRequest{Email: " Teacher@School.kr ", Name: "박선생", Password: "letmein"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.TeacherEmail != teacher || res.Token == "" {
		t.Fatalf("login response: %+v", res)
	}

	claims, err := svc.ValidateTeacherToken(res.Token)
	if err != nil {
		t.Fatalf("ValidateTeacherToken: %v", err)
	}
	if claims.TeacherEmail != teacher || claims.TeacherName != "박선생" {
		t.Fatalf("claims: %+v", claims)
	}
}

func TestLoginRejects(t *testing.T) {
	svc := NewAuthService("secret", "letmein")
	for _, req := range []model.LoginRequest{
		{Email: teacher, Password: "wrong"},
		{Email: "not-an-email", Password: "letmein"},
		{Email: "", Password: "letmein"},
	} {
		if _, err := svc.Login(req); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%+v: got %v", req, err)
		}
	}

	open := NewAuthService("secret", "")
	if _, err := open.Login(model.LoginRequest{Email: teacher}); err != nil {
		t.Fatalf("open login: %v", err)
	}
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	other := NewAuthService("other-secret", "")
	res, err := other.Login(model.LoginRequest{Email: teacher})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	svc := NewAuthService("secret", "")
	if _, err := svc.ValidateTeacherToken(res.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret: got %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, err := svc.Login(model.LoginRequest{Email: teacher})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.ValidateTeacherToken(old.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: got %v", err)
	}
	if _, err := svc.ValidateTeacherToken("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: got %v", err)
	}
}
