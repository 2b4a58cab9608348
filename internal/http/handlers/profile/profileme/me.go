// Package profileme реализует HTTP-обработчик чтения профиля пользователя.
//
// Ответ собирается из учётной записи в схеме auth и профиля в схеме users,
// профиль создаётся лениво при первом обращении.
package profileme

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики чтения профиля.
type Service interface {
	Me(ctx context.Context, userID string) (*models.Me, error)
}

// Handler управляет HTTP-запросами чтения профиля.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Профиль текущего пользователя
// @Description Возвращает учётную запись вместе с публичным профилем.
// @Tags Users
// @Produce json
// @Success 200 {object} response.Response "Профиль пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Учётная запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении профиля"
// @Security ApiKeyAuth
// @Router /users/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	me, err := h.service.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("account not found", slog.String("user_id", userID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("account not found"))
			return
		}
		log.Error("failed to read profile", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read profile"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user": me,
	}))
}
