// Package orderread реализует HTTP-обработчик чтения заказа.
package orderread

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
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики чтения заказа.
type Service interface {
	Get(ctx context.Context, userID, orderID string) (*models.Order, error)
}

// Handler управляет HTTP-запросами чтения заказа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить заказ
// @Description Возвращает заказ текущего пользователя. Чужой заказ выглядит несуществующим.
// @Tags Orders
// @Produce json
// @Param id path string true "Идентификатор заказа"
// @Success 200 {object} response.Response "Данные заказа"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Заказ не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении заказа"
// @Security ApiKeyAuth
// @Router /orders/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.order.read"

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

	order, err := h.service.Get(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("order not found", slog.String("order_id", orderID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("order not found"))
			return
		}
		log.Error("failed to read order", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read order"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"order": order,
	}))
}
