// Package profileremove реализует HTTP-обработчик удаления учётной записи.
//
// Удаление мягкое: строка в схеме auth остаётся для истории платежей
// и запросов субъекта данных, повторный вход становится невозможен.
package profileremove

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
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики удаления учётной записи.
type Service interface {
	DeleteAccount(ctx context.Context, userID string) error
}

// Handler управляет HTTP-запросами удаления учётной записи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить учётную запись
// @Description Мягко удаляет учётную запись текущего пользователя.
// @Tags Users
// @Produce json
// @Success 200 {object} response.Response "Учётная запись удалена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Учётная запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при удалении"
// @Security ApiKeyAuth
// @Router /users/me [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.remove"

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

	err := h.service.DeleteAccount(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("account not found", slog.String("user_id", userID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("account not found"))
			return
		}
		log.Error("failed to delete account", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not delete account"))
		return
	}

	log.Info("account deleted", slog.String("user_id", userID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"deleted": true,
	}))
}
