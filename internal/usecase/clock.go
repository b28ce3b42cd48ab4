package usecase

import (
	"time"

	"github.com/GoArmGo/GeoPhoto/internal/domain"
	"github.com/google/uuid"
)

// Clock — источник текущего времени
type Clock interface {
	Now() time.Time
}

// SystemClock — реальные часы, время в UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// KeyGenerator выдаёт ключ хранения для нового файла
type KeyGenerator interface {
	NewKey(originalName string) string
}

// UUIDKeyGenerator — UUID плюс расширение исходного файла с точкой
type UUIDKeyGenerator struct{}

func (UUIDKeyGenerator) NewKey(originalName string) string {
	return uuid.NewString() + safeExtension(originalName)
}

// safeExtension отбрасывает расширение, если оно сломало бы URL /api/photos/image/{key}
func safeExtension(name string) string {
	ext := domain.FileExtension(name)
	for _, r := range ext {
		if r == '/' || r == '\\' || r == '?' || r == '#' || r == '%' || r == ' ' || r < 0x20 {
			return ""
		}
	}
	return ext
}
