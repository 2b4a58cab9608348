// Package orderpay реализует HTTP-обработчик оплаты заказа.
//
// Оплата имитируется: заказ переходит в paid без обращения к платёжному
// провайдеру, вместе с этим создаётся запись на курс.
package orderpay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики оплаты заказа.
type Service interface {
	Pay(ctx context.Context, userID, orderID string) error
}

// Handler управляет HTTP-запросами оплаты заказа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Оплатить заказ
// @Description Переводит заказ из pending в paid и открывает доступ к курсу.
// @Tags Orders
// @Produce json
// @Param id path string true "Идентификатор заказа"
// @Success 200 {object} response.Response "Заказ оплачен"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Заказ не найден"
// @Failure 409 {object} response.ErrorResponse "Заказ не в статусе pending"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при оплате"
// @Security ApiKeyAuth
// @Router /orders/{id}/pay [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.order.pay"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	orderID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(orderID); err != nil {
		log.Error("invalid order id", slog.String("order_id", orderID))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid order id"))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	err := h.service.Pay(r.Context(), userID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			log.Info("order is not payable", slog.String("order_id", orderID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("order is not pending"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("order not found", slog.String("order_id", orderID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("order not found"))
		default:
			log.Error("failed to pay order", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not pay order"))
		}
		return
	}

	log.Info("order paid", slog.String("order_id", orderID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"paid": true,
	}))
}
