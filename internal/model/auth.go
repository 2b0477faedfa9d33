package model

import "github.com/golang-jwt/jwt/v5"

// TeacherClaims are JWT claims for teacher authentication
type TeacherClaims struct {
	TeacherEmail string `json:"teacherEmail"`
	TeacherName  string `json:"teacherName,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for teacher login
type LoginRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token        string `json:"token"`
	TeacherEmail string `json:"teacherEmail"`
}
