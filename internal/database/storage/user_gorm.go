package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/domain"
)

// GormUserStorage реализует интерфейс ports.UserStorage с использованием GORM
type GormUserStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ ports.UserStorage = (*GormUserStorage)(nil)

// NewGormUserStorage создает новый экземпляр GormUserStorage
func NewGormUserStorage(db *gorm.DB, logger *slog.Logger) *GormUserStorage {
	return &GormUserStorage{db: db, logger: logger}
}

// CreateUser сохраняет нового пользователя
func (s *GormUserStorage) CreateUser(ctx context.Context, user *domain.User) error {
	start := time.Now()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if dup := duplicateUserField(err); dup != nil {
			s.logger.Warn("user already exists", "username", user.Username, "error", err)
			return fmt.Errorf("ошибка при создании пользователя с GORM: %w", dup)
		}
		s.logger.Error("failed to create user", "username", user.Username, "error", err)
		return fmt.Errorf("ошибка при создании пользователя с GORM: %w", err)
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"username", user.Username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// duplicateUserField переводит нарушение уникальности users в ports.ErrDuplicate*.
// PostgreSQL отдаёт *pq.Error с кодом 23505 и именем ограничения,
// SQLite — текст "UNIQUE constraint failed: users.<column>".
func duplicateUserField(err error) error {
	detail := ""
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pqErr):
		if pqErr.Code != "23505" {
			return nil
		}
		detail = pqErr.Constraint + " " + pqErr.Detail
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		detail = err.Error()
	default:
		return nil
	}

	switch {
	case strings.Contains(detail, "username"):
		return ports.ErrDuplicateUsername
	case strings.Contains(detail, "email"):
		return ports.ErrDuplicateEmail
	}
	return nil
}

// GetUserByUsername ищет пользователя по имени; (nil, nil), если не найден
func (s *GormUserStorage) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.first(ctx, "username = ?", username)
}

// GetUserByID ищет пользователя по id; (nil, nil), если не найден
func (s *GormUserStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormUserStorage) first(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where(cond, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("failed to get user", "cond", cond, "error", err)
		return nil, fmt.Errorf("ошибка при поиске пользователя с GORM: %w", err)
	}
	return &user, nil
}

func (s *GormUserStorage) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username = ?", username)
}

func (s *GormUserStorage) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", email)
}

func (s *GormUserStorage) exists(ctx context.Context, cond string, arg any) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where(cond, arg).Count(&n).Error; err != nil {
		return false, fmt.Errorf("ошибка при проверке пользователя с GORM: %w", err)
	}
	return n > 0, nil
}
