// Package invoicepay реализует HTTP-обработчик оплаты счёта подписки.
package invoicepay

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

// Service описывает интерфейс бизнес-логики оплаты счёта.
type Service interface {
	PayInvoice(ctx context.Context, userID, invoiceID string) error
}

// Handler управляет HTTP-запросами оплаты счёта.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Оплатить счёт подписки
// @Description Помечает открытый счёт оплаченным и возвращает просроченную подписку в active.
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Идентификатор счёта"
// @Success 200 {object} response.Response "Счёт оплачен"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Счёт не найден"
// @Failure 409 {object} response.ErrorResponse "Счёт уже закрыт"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при оплате счёта"
// @Security ApiKeyAuth
// @Router /invoices/{id}/pay [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.invoicepay"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	invoiceID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(invoiceID); err != nil {
		log.Error("invalid invoice id", slog.String("invoice_id", invoiceID))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid invoice id"))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	err := h.service.PayInvoice(r.Context(), userID, invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			log.Info("invoice is not open", slog.String("invoice_id", invoiceID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("invoice is not open"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("invoice not found", slog.String("invoice_id", invoiceID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("invoice not found"))
		default:
			log.Error("failed to pay invoice", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not pay invoice"))
		}
		return
	}

	log.Info("invoice paid", slog.String("invoice_id", invoiceID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"paid": true,
	}))
}
