package http

import (
	"github.com/gin-gonic/gin"

	"user-service/internal/domain"
)

type UserResponse struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	FullName          string `json:"fullName"`
	Role              string `json:"role"`
	ProfilePicture    string `json:"profilePicture"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

type RegistrationResponse struct {
	Data  UserResponse `json:"data"`
	Token string       `json:"token"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type ValidationErrorResponse struct {
	Errors []string `json:"errors"`
	Status int      `json:"status"`
}

func (h *Handler) toResponse(c *gin.Context, user *domain.User) UserResponse {
	return UserResponse{
		ID:                user.ID,
		Username:          user.Username,
		Email:             user.Email,
		FullName:          user.FullName,
		Role:              string(user.Role),
		ProfilePicture:    user.ProfilePicture,
		ProfilePictureURL: h.users.PictureURL(c.Request.Context(), user.ProfilePicture),
	}
}
