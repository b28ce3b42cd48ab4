package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/domain"
)

type authUseCase struct {
	users  ports.UserStorage
	tokens TokenMinter
	cost   int
	logger *slog.Logger
}

// NewAuthUseCase создает AuthUseCase. cost — стоимость bcrypt, 0 — bcrypt.DefaultCost.
func NewAuthUseCase(users ports.UserStorage, tokens TokenMinter, cost int, logger *slog.Logger) AuthUseCase {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &authUseCase{users: users, tokens: tokens, cost: cost, logger: logger}
}

func (uc *authUseCase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	taken, err := uc.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при проверке имени пользователя: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = uc.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при проверке email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cost)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при хешировании пароля: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     in.FullName,
		Role:         domain.RoleUser,
		Enabled:      true,
	}
	// параллельная регистрация могла пройти проверки выше раньше нас
	err = uc.users.CreateUser(ctx, user)
	switch {
	case errors.Is(err, ports.ErrDuplicateUsername):
		return nil, ErrUsernameTaken
	case errors.Is(err, ports.ErrDuplicateEmail):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, fmt.Errorf("usecase: ошибка при создании пользователя: %w", err)
	}

	uc.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login не различает неизвестного пользователя и неверный пароль.
func (uc *authUseCase) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := uc.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при поиске пользователя: %w", err)
	}
	if user == nil || !user.Enabled {
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при проверке пароля: %w", err)
	}

	token, exp, err := uc.tokens.Mint(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при выпуске токена: %w", err)
	}

	uc.logger.Info("user logged in", "user_id", user.ID)
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (uc *authUseCase) CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := uc.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении пользователя: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
