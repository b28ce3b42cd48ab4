// Package handler содержит HTTP-обработчики API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/GoArmGo/GeoPhoto/internal/usecase"
)

// validate — общий валидатор тел запросов; кеширует разобранные структуры
var validate = validator.New()

// respondWithJSON — отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// respondWithError — отправляет JSON-ответ с ошибкой.
func respondWithError(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	respondWithJSON(w, code, map[string]string{"error": message}, logger)
}

// respondWithUsecaseError переводит ошибку бизнес-логики в HTTP-статус.
// Неизвестные ошибки логируются и отдаются как 500 без подробностей.
func respondWithUsecaseError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var (
		vErr *usecase.ValidationError
		sErr *usecase.StorageError
	)
	switch {
	case errors.As(err, &vErr):
		respondWithError(w, http.StatusBadRequest, vErr.Error(), logger)
	case errors.Is(err, usecase.ErrPhotoNotFound), errors.Is(err, usecase.ErrBlobNotFound), errors.Is(err, usecase.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), logger)
	case errors.Is(err, usecase.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, err.Error(), logger)
	case errors.Is(err, usecase.ErrUsernameTaken), errors.Is(err, usecase.ErrEmailTaken):
		respondWithError(w, http.StatusBadRequest, err.Error(), logger)
	case errors.As(err, &sErr):
		logger.Error("storage failure", "op", sErr.Op, "error", sErr.Err)
		respondWithError(w, http.StatusInternalServerError, "failed to store image", logger)
	default:
		logger.Error("request failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error", logger)
	}
}

// decodeAndValidate читает JSON-тело в dst и проверяет теги validate.
// Ошибку можно отдавать клиенту как есть.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.New(fe.Field() + " failed on '" + fe.Tag() + "'")
		}
		return err
	}
	return nil
}
