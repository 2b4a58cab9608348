// Package planlist реализует HTTP-обработчик каталога тарифных планов.
package planlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
)

// Service описывает интерфейс бизнес-логики каталога планов.
type Service interface {
	ListPlans(ctx context.Context) ([]*models.Plan, error)
}

// Handler управляет HTTP-запросами каталога планов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Каталог тарифных планов
// @Description Возвращает активные планы подписки, отсортированные по цене.
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} response.Response "Список планов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении каталога"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.planlist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list plans"))
		return
	}

	log.Info("plans listed", slog.Int("count", len(plans)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"plans": plans,
	}))
}
