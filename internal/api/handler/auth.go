package handler

import (
	"net/http"
	"time"

	"github.com/betflow/betflow-api/internal/api/middleware"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/service"
)

type AuthHandler struct {
	users *service.UserService
	ttl   time.Duration
}

func NewAuthHandler(users *service.UserService, ttl time.Duration) *AuthHandler {
	return &AuthHandler{users: users, ttl: ttl}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login exchanges staff credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "login failed")
		return
	}

	token, expiresAt, err := middleware.IssueToken(*user, h.ttl)
	if err != nil {
		writeServiceError(w, r, err, "failed to sign token")
		return
	}
	RespondJSON(w, http.StatusOK, loginResponse{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt, User: user})
}
