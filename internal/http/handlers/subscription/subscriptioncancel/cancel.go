// Package subscriptioncancel реализует HTTP-обработчик отмены подписки.
//
// По умолчанию подписка доживает до конца оплаченного периода, флаг
// immediate в теле запроса завершает её сразу.
package subscriptioncancel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики отмены подписки.
type Service interface {
	Cancel(ctx context.Context, userID, subscriptionID string, req models.DummyCancelSubscription) error
}

// Handler управляет HTTP-запросами отмены подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Помечает подписку к отмене в конце периода или завершает немедленно при immediate=true. Тело запроса опционально.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Идентификатор подписки"
// @Param request body models.DummyCancelSubscription false "Параметры отмены"
// @Success 200 {object} response.Response "Отмена принята"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор или JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Подписка уже завершена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при отмене"
// @Security ApiKeyAuth
// @Router /subscriptions/{id}/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subscriptionID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(subscriptionID); err != nil {
		log.Error("invalid subscription id", slog.String("subscription_id", subscriptionID))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid subscription id"))
		return
	}

	// Тело опционально, пустое тело означает отмену в конце периода.
	var req models.DummyCancelSubscription
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	err := h.service.Cancel(r.Context(), userID, subscriptionID, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			log.Info("subscription is not open", slog.String("subscription_id", subscriptionID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("subscription already finished"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("subscription not found", slog.String("subscription_id", subscriptionID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription not found"))
		default:
			log.Error("failed to cancel subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not cancel subscription"))
		}
		return
	}

	log.Info("subscription cancellation accepted",
		slog.String("subscription_id", subscriptionID),
		slog.Bool("immediate", req.Immediate))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"cancelled": true,
		"immediate": req.Immediate,
	}))
}
