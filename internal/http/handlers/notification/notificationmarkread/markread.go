// Package notificationmarkread реализует HTTP-обработчик отметки о прочтении.
package notificationmarkread

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
)

// Service описывает интерфейс бизнес-логики отметки о прочтении.
type Service interface {
	MarkRead(ctx context.Context, notificationID, userID string) error
}

// Handler управляет HTTP-запросами отметки о прочтении.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отметить уведомление прочитанным
// @Description Ставит отметку о прочтении. Повторная отметка и чужое уведомление не считаются ошибкой.
// @Tags Notifications
// @Produce json
// @Param id path string true "Идентификатор уведомления"
// @Success 200 {object} response.Response "Отметка поставлена"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при отметке"
// @Security ApiKeyAuth
// @Router /users/me/notifications/{id}/read [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.markread"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	notificationID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(notificationID); err != nil {
		log.Error("invalid notification id", slog.String("notification_id", notificationID))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid notification id"))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.MarkRead(r.Context(), notificationID, userID); err != nil {
		log.Error("failed to mark notification read", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not mark notification read"))
		return
	}

	log.Info("notification marked read", slog.String("notification_id", notificationID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"read": true,
	}))
}
