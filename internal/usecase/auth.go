package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/GoArmGo/GeoPhoto/internal/domain"
)

// RegisterInput — данные для регистрации
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// LoginResult — выданный токен и пользователь, которому он выдан
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthUseCase — регистрация, вход и текущий пользователь
type AuthUseCase interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// TokenMinter выпускает bearer-токен для принципала
type TokenMinter interface {
	Mint(p domain.Principal) (string, time.Time, error)
}
