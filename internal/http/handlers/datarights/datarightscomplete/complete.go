// Package datarightscomplete реализует HTTP-обработчик завершения запроса
// субъекта данных. Доступно только администратору.
package datarightscomplete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики завершения запроса.
type Service interface {
	Complete(ctx context.Context, requestID string) error
}

// Handler управляет HTTP-запросами завершения запроса.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Завершить запрос субъекта данных
// @Description Переводит запрос из in_progress в completed.
// @Tags Compliance
// @Produce json
// @Param id path string true "Идентификатор запроса"
// @Success 200 {object} response.Response "Запрос завершён"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 404 {object} response.ErrorResponse "Запрос не найден"
// @Failure 409 {object} response.ErrorResponse "Запрос не в статусе in_progress"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при завершении"
// @Security ApiKeyAuth
// @Router /data-requests/{id}/complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.datarights.complete"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requestID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(requestID); err != nil {
		log.Error("invalid request id", slog.String("data_request_id", requestID))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request id"))
		return
	}

	err := h.service.Complete(r.Context(), requestID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			log.Info("request is not in progress", slog.String("data_request_id", requestID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("request is not in progress"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("request not found", slog.String("data_request_id", requestID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("request not found"))
		default:
			log.Error("failed to complete request", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not complete request"))
		}
		return
	}

	log.Info("data rights request completed", slog.String("data_request_id", requestID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"completed": true,
	}))
}
