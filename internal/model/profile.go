package model

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes students from administrators.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Profile is an application user.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	FatherName   string    `json:"father_name,omitempty"`
	Surname      string    `json:"surname"`
	Mobile       string    `json:"mobile,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName joins the name parts that are present.
func (p *Profile) FullName() string {
	name := p.FirstName
	if p.Surname != "" {
		name += " " + p.Surname
	}
	return name
}

// RegisterStudentRequest is the payload for student self-registration.
type RegisterStudentRequest struct {
	Email      string `json:"email" binding:"required,email,max=255"`
	Password   string `json:"password" binding:"required,min=6,max=128"`
	FirstName  string `json:"first_name" binding:"required,min=1,max=100"`
	FatherName string `json:"father_name" binding:"omitempty,max=100"`
	Surname    string `json:"surname" binding:"required,min=1,max=100"`
	Mobile     string `json:"mobile" binding:"omitempty,max=20"`
}

// LoginRequest is the payload for both student and admin login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}
