package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GoArmGo/GeoPhoto/internal/domain"
	"github.com/GoArmGo/GeoPhoto/internal/usecase"
)

// multipartMemory — сколько multipart-данных держать в памяти, остальное во временных файлах
const multipartMemory = 10 << 20

// PhotoHandler — обработчик HTTP-запросов для работы с фотографиями.
type PhotoHandler struct {
	photoUseCase   usecase.PhotoUseCase
	uploadLimiter  chan struct{}
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewPhotoHandler создаёт новый экземпляр PhotoHandler.
// limiter ограничивает число одновременных загрузок.
func NewPhotoHandler(uc usecase.PhotoUseCase, limiter chan struct{}, maxUploadBytes int64, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{
		photoUseCase:   uc,
		uploadLimiter:  limiter,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Upload — POST /api/photos/upload, multipart: file и необязательное description.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	select {
	case h.uploadLimiter <- struct{}{}:
		defer func() { <-h.uploadLimiter }()
	case <-r.Context().Done():
		respondWithError(w, http.StatusServiceUnavailable, "upload cancelled", h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit", h.logger)
			return
		}
		h.logger.Warn("invalid multipart form", "error", err)
		respondWithError(w, http.StatusBadRequest, "invalid multipart form", h.logger)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "file is required", h.logger)
		return
	}
	defer file.Close()

	photo, err := h.photoUseCase.UploadPhoto(r.Context(), p, usecase.UploadInput{
		Content:      file,
		ContentType:  header.Header.Get("Content-Type"),
		OriginalName: header.Filename,
		Description:  r.FormValue("description"),
	})
	if err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}

	respondWithJSON(w, http.StatusCreated, photo, h.logger)
}

// List — GET /api/photos
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	photos, err := h.photoUseCase.ListPhotos(r.Context(), p)
	if err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, photos, h.logger)
}

// ListWithGPS — GET /api/photos/with-gps
func (h *PhotoHandler) ListWithGPS(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	photos, err := h.photoUseCase.ListPhotosWithGPS(r.Context(), p)
	if err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, photos, h.logger)
}

// Get — GET /api/photos/{id}
func (h *PhotoHandler) Get(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}
	photo, err := h.photoUseCase.GetPhoto(r.Context(), p, id)
	if err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, photo, h.logger)
}

// ServeImage — GET /api/photos/image/{filename}, публичный
func (h *PhotoHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "filename")
	blob, err := h.photoUseCase.ServeImage(r.Context(), key)
	if err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}
	defer blob.Body.Close()

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if blob.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
	}
	if !blob.StoredAt.IsZero() {
		w.Header().Set("Last-Modified", blob.StoredAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	n, err := io.Copy(w, blob.Body)
	if err != nil {
		h.logger.Warn("image stream interrupted", "key", key, "written", n, "error", err)
		return
	}
	h.logger.Debug("image served", "key", key, "bytes", n, "duration_ms", time.Since(start).Milliseconds())
}

// Delete — DELETE /api/photos/{id}
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}
	if err := h.photoUseCase.DeletePhoto(r.Context(), p, id); err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// locationRequest — тело PUT /api/photos/{id}/location
type locationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

// UpdateLocation — PUT /api/photos/{id}/location
func (h *PhotoHandler) UpdateLocation(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	id, ok := h.photoID(w, r)
	if !ok {
		return
	}

	var req locationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	photo, err := h.photoUseCase.UpdateLocation(r.Context(), p, id, req.Latitude, req.Longitude)
	if err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, photo, h.logger)
}

func (h *PhotoHandler) photoID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("invalid photo id", "id", raw, "error", err)
		respondWithError(w, http.StatusBadRequest, "invalid photo id", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
