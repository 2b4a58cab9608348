// Package subscriptionme реализует HTTP-обработчик текущей подписки пользователя.
package subscriptionme

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

// Service описывает интерфейс бизнес-логики чтения текущей подписки.
type Service interface {
	GetMine(ctx context.Context, userID string) (*models.Subscription, *models.Plan, error)
}

// Handler управляет HTTP-запросами чтения текущей подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Текущая подписка пользователя
// @Description Возвращает открытую подписку пользователя вместе с тарифным планом.
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} response.Response "Подписка и план"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Открытой подписки нет"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении подписки"
// @Security ApiKeyAuth
// @Router /subscriptions/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.me"

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

	sub, plan, err := h.service.GetMine(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("no open subscription", slog.String("user_id", userID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("no active subscription"))
			return
		}
		log.Error("failed to read subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
		"plan":         plan,
	}))
}
