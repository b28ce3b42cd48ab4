// Package metadata извлекает из изображений EXIF-метаданные:
// GPS-координаты и время съёмки.
//
// Каждая функция читает поток до конца нужного ей сегмента и не умеет
// перематывать его, поэтому для двух проходов нужны два независимых потока.
package metadata

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/GoArmGo/GeoPhoto/internal/domain"
	"github.com/rwcarlsen/goexif/exif"
)

// exifTimeLayout — формат DateTimeOriginal ("2006:01:02 15:04:05"), без часового пояса
const exifTimeLayout = "2006:01:02 15:04:05"

// Extractor — реализация ports.MetadataExtractor поверх goexif.
type Extractor struct{}

// NewExtractor создаёт экстрактор
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractGPS возвращает координаты из GPS IFD.
// (nil, nil) — метаданных нет; ошибка — поток повреждён или не читается.
func (Extractor) ExtractGPS(r io.Reader) (*domain.GeoPoint, error) {
	x, err := decode(r)
	if err != nil || x == nil {
		return nil, err
	}

	lat, lon, err := x.LatLong()
	if err != nil {
		if exif.IsTagNotPresentError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("metadata: ошибка чтения GPS: %w", err)
	}
	if !finite(lat) || !finite(lon) {
		return nil, fmt.Errorf("metadata: некорректные GPS-координаты (%v, %v)", lat, lon)
	}

	return &domain.GeoPoint{Latitude: lat, Longitude: lon}, nil
}

// ExtractCapturedAt возвращает DateTimeOriginal. EXIF не хранит пояс, время считается UTC.
func (Extractor) ExtractCapturedAt(r io.Reader) (*time.Time, error) {
	x, err := decode(r)
	if err != nil || x == nil {
		return nil, err
	}

	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		if exif.IsTagNotPresentError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("metadata: ошибка чтения DateTimeOriginal: %w", err)
	}

	raw, err := tag.StringVal()
	if err != nil {
		return nil, fmt.Errorf("metadata: DateTimeOriginal не строка: %w", err)
	}
	raw = strings.TrimRight(raw, "\x00 ")
	if raw == "" {
		return nil, nil
	}

	t, err := time.ParseInLocation(exifTimeLayout, raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("metadata: некорректный DateTimeOriginal %q: %w", raw, err)
	}
	return &t, nil
}

// decode разбирает EXIF. Отсутствие EXIF-сегмента — не ошибка: (nil, nil).
// Некритичные ошибки разбора отдельных тегов игнорируются, если структура прочитана.
func decode(r io.Reader) (*exif.Exif, error) {
	x, err := exif.Decode(r)
	if err == nil {
		return x, nil
	}
	if x != nil && !exif.IsCriticalError(err) {
		return x, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, nil
	}
	return nil, fmt.Errorf("metadata: ошибка разбора EXIF: %w", err)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
