package ports

import (
	"io"
	"time"

	"github.com/GoArmGo/GeoPhoto/internal/domain"
)

// MetadataExtractor читает метаданные изображения из потока.
// (nil, nil) означает, что значения в файле нет.
type MetadataExtractor interface {
	ExtractGPS(r io.Reader) (*domain.GeoPoint, error)
	ExtractCapturedAt(r io.Reader) (*time.Time, error)
}
