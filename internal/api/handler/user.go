package handler

import (
	"net/http"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER admin manager"`
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterUserCommand{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.Role(req.Role),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create user")
		return
	}
	RespondJSON(w, http.StatusCreated, user)
}

// Me returns the authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := requestActor(r)
	if actor == nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", "Invalid token claims")
		return
	}
	user, err := h.users.Get(r.Context(), *actor)
	if err != nil {
		writeServiceError(w, r, err, "failed to load user")
		return
	}
	RespondJSON(w, http.StatusOK, user)
}

