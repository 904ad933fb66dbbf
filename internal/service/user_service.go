package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"metvil/internal/model"
	"metvil/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

type RegisterUserDTO struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserDTO struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Role           string `json:"role"`
	IsLeadApprover *bool  `json:"is_lead_approver"`
}

type UserResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Role           string `json:"role"`
	IsLeadApprover bool   `json:"is_lead_approver"`
	CreatedAt      string `json:"created_at"`
}

type TokenResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// --- Interface ---

type UserService interface {
	Register(ctx context.Context, req RegisterUserDTO) (UserResponse, error)
	Login(ctx context.Context, req LoginDTO) (TokenResponse, error)
	GetByID(ctx context.Context, p model.Principal, id string) (UserResponse, error)
	List(ctx context.Context, p model.Principal, page, limit int) ([]UserResponse, int64, error)
	Update(ctx context.Context, p model.Principal, id string, req UpdateUserDTO) (UserResponse, error)
	Delete(ctx context.Context, p model.Principal, id string) error
}

type userService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserService(users repository.UserRepository, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{users: users, logger: logger}
}

// --- Implementation ---

func (s *userService) Register(ctx context.Context, req RegisterUserDTO) (UserResponse, error) {
	if req.Role != model.RoleRequester && req.Role != model.RoleApprover {
		return UserResponse{}, fmt.Errorf("%w: role must be %q or %q", ErrValidation, model.RoleRequester, model.RoleApprover)
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return UserResponse{}, fmt.Errorf("%w: username already exists", ErrValidation)
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return UserResponse{}, fmt.Errorf("%w: email already exists", ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
	}

	// The very first approver registered becomes the lead approver and can
	// manage other accounts.
	if req.Role == model.RoleApprover {
		count, countErr := s.users.CountByRole(ctx, model.RoleApprover)
		if countErr != nil {
			return UserResponse{}, fmt.Errorf("failed to count approvers: %w", countErr)
		}
		user.IsLeadApprover = count == 0
	}

	if err := s.users.Create(ctx, user); err != nil {
		return UserResponse{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role))

	return toUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginDTO) (TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("%w: invalid username or password", ErrPermissionDenied)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return TokenResponse{}, fmt.Errorf("%w: invalid username or password", ErrPermissionDenied)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"lead": user.IsLeadApprover,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return TokenResponse{Token: signed, User: toUserResponse(user)}, nil
}

func (s *userService) GetByID(ctx context.Context, p model.Principal, id string) (UserResponse, error) {
	if !p.IsApprover() && p.ID.String() != id {
		return UserResponse{}, fmt.Errorf("%w: cannot view other users", ErrPermissionDenied)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return UserResponse{}, wrapNotFound(err, "user "+id)
	}
	return toUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, p model.Principal, page, limit int) ([]UserResponse, int64, error) {
	if !p.IsLeadApprover {
		return nil, 0, fmt.Errorf("%w: only the lead approver may list users", ErrPermissionDenied)
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, total, nil
}

func (s *userService) Update(ctx context.Context, p model.Principal, id string, req UpdateUserDTO) (UserResponse, error) {
	if !p.IsLeadApprover && p.ID.String() != id {
		return UserResponse{}, fmt.Errorf("%w: only the lead approver may manage other users", ErrPermissionDenied)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return UserResponse{}, wrapNotFound(err, "user "+id)
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Role != "" {
		// Role and lead changes are reserved for the lead approver.
		if !p.IsLeadApprover {
			return UserResponse{}, fmt.Errorf("%w: only the lead approver may change roles", ErrPermissionDenied)
		}
		if req.Role != model.RoleRequester && req.Role != model.RoleApprover {
			return UserResponse{}, fmt.Errorf("%w: role must be %q or %q", ErrValidation, model.RoleRequester, model.RoleApprover)
		}
		user.Role = req.Role
	}
	if req.IsLeadApprover != nil {
		if !p.IsLeadApprover {
			return UserResponse{}, fmt.Errorf("%w: only the lead approver may change lead status", ErrPermissionDenied)
		}
		user.IsLeadApprover = *req.IsLeadApprover
	}

	if err := s.users.Update(ctx, user); err != nil {
		return UserResponse{}, fmt.Errorf("failed to update user: %w", err)
	}
	return toUserResponse(user), nil
}

func (s *userService) Delete(ctx context.Context, p model.Principal, id string) error {
	if !p.IsLeadApprover {
		return fmt.Errorf("%w: only the lead approver may delete users", ErrPermissionDenied)
	}
	if p.ID.String() == id {
		return fmt.Errorf("%w: the lead approver cannot delete their own account", ErrValidation)
	}

	if _, err := s.users.GetByID(ctx, id); err != nil {
		return wrapNotFound(err, "user "+id)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:             u.ID.String(),
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		IsLeadApprover: u.IsLeadApprover,
		CreatedAt:      u.CreatedAt.Format(time.RFC3339),
	}
}
