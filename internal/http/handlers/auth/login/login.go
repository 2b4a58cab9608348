// Package login реализует HTTP-обработчик проверки учётных данных.
//
// Handler принимает JSON-запрос с почтой и паролем, валидирует поля
// и делегирует проверку бизнес-логике. При успехе возвращается сводка
// учётной записи для шлюза аутентификации; в случае ошибок формируются
// соответствующие HTTP-ответы.
package login

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	authservice "github.com/edlatam/lms-platform/internal/services/auth"
)

// Handler управляет HTTP-запросами входа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверить учётные данные
// @Description Проверяет почту и пароль. Возвращает сводку учётной записи для выдачи токена шлюзом.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.DummyLogin true "Учётные данные"
// @Success 200 {object} response.Response "Учётные данные верны"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверные учётные данные"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при входе"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyLogin
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	user, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, authservice.ErrInvalidCredentials) {
			log.Error("invalid credentials", slog.String("email", req.Email))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid email or password"))
			return
		}
		log.Error("login failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to login"))
		return
	}

	log.Info("login succeeded", slog.String("user_id", user.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_id":     user.ID,
		"email":       user.Email,
		"role":        user.Role,
		"is_verified": user.IsVerified,
	}))
}
