// Package datarightsstart реализует HTTP-обработчик взятия запроса
// субъекта данных в работу. Доступно только администратору.
package datarightsstart

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

// Service описывает интерфейс бизнес-логики обработки запроса.
type Service interface {
	Start(ctx context.Context, requestID string) error
}

// Handler управляет HTTP-запросами взятия запроса в работу.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Взять запрос субъекта данных в работу
// @Description Переводит запрос из received в in_progress.
// @Tags Compliance
// @Produce json
// @Param id path string true "Идентификатор запроса"
// @Success 200 {object} response.Response "Запрос в работе"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 404 {object} response.ErrorResponse "Запрос не найден"
// @Failure 409 {object} response.ErrorResponse "Запрос не в статусе received"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при обработке"
// @Security ApiKeyAuth
// @Router /data-requests/{id}/start [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.datarights.start"

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

	err := h.service.Start(r.Context(), requestID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			log.Info("request is not received", slog.String("data_request_id", requestID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("request is not in received status"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("request not found", slog.String("data_request_id", requestID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("request not found"))
		default:
			log.Error("failed to start request", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not start request"))
		}
		return
	}

	log.Info("data rights request started", slog.String("data_request_id", requestID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"started": true,
	}))
}
