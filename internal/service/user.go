package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials hides whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserService manages back-office staff accounts.
type UserService struct {
	store  QueryStore
	notify *NotificationService
	cost   int
}

func NewUserService(store QueryStore, notify *NotificationService) *UserService {
	return &UserService{store: store, notify: notify, cost: bcrypt.DefaultCost}
}

// WithHashCost lowers the bcrypt cost, for tests.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

type RegisterUserCommand struct {
	Username  string `validate:"required,min=3,max=50"`
	Email     string `validate:"required,email,max=255"`
	Password  string `validate:"required,min=8,max=72"`
	FirstName string `validate:"max=100"`
	LastName  string `validate:"max=100"`
	Role      domain.Role
}

func (s *UserService) Register(ctx context.Context, cmd RegisterUserCommand) (*models.User, error) {
	cmd.Username = strings.TrimSpace(cmd.Username)
	if err := validateStruct(cmd); err != nil {
		return nil, err
	}
	if cmd.Role == "" {
		cmd.Role = domain.RoleManager
	}
	role, err := domain.ParseRole(string(cmd.Role))
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	q := s.store.Queries()
	if _, err := q.GetUserByUsername(ctx, cmd.Username); err == nil {
		return nil, domain.NewConflictError("username already exists: %s", cmd.Username)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	user, err := q.CreateUser(ctx, models.User{
		ID:           uuid.New(),
		Username:     cmd.Username,
		Email:        cmd.Email,
		PasswordHash: string(hash),
		FirstName:    cmd.FirstName,
		LastName:     cmd.LastName,
		Role:         role,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	if s.notify != nil {
		s.notify.Welcome(ctx, user.Username)
	}
	return &user, nil
}

// Authenticate checks the password against the stored bcrypt hash.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.Queries().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.Queries().GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
