package handler

import (
	"log/slog"
	"net/http"

	"github.com/GoArmGo/GeoPhoto/internal/domain"
	"github.com/GoArmGo/GeoPhoto/internal/usecase"
)

// AuthHandler — регистрация, вход и текущий пользователь
type AuthHandler struct {
	authUseCase usecase.AuthUseCase
	logger      *slog.Logger
}

func NewAuthHandler(uc usecase.AuthUseCase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authUseCase: uc, logger: logger}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"fullName" validate:"max=100"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// userResponse — пользователь без хеша пароля; Token заполняется только при входе
type userResponse struct {
	Token    string      `json:"token,omitempty"`
	Type     string      `json:"type,omitempty"`
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	FullName string      `json:"fullName"`
	Role     domain.Role `json:"role"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// Register — POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	_, err := h.authUseCase.Register(r.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"}, h.logger)
}

// Login — POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	res, err := h.authUseCase.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}

	resp := newUserResponse(res.User)
	resp.Token = res.Token
	resp.Type = "Bearer"
	respondWithJSON(w, http.StatusOK, resp, h.logger)
}

// Me — GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	user, err := h.authUseCase.CurrentUser(r.Context(), p.UserID)
	if err != nil {
		respondWithUsecaseError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, newUserResponse(user), h.logger)
}
